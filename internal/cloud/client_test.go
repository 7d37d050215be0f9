package cloud

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// staticTokens is a fixed-token TokenSource.
type staticTokens struct{ token string }

func (s staticTokens) Bearer() string { return s.token }

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotUA, gotEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		json.NewEncoder(w).Encode(map[string]any{"data": []Home{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{token: "tok-123"}, time.Second)
	if _, err := client.Homes(context.Background()); err != nil {
		t.Fatalf("Homes: %v", err)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
	if gotUA == "" {
		t.Error("User-Agent header missing")
	}
	if gotEncoding != "gzip" {
		t.Errorf("Accept-Encoding = %q, want gzip", gotEncoding)
	}
}

func TestHomesUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prod_v1/users/me/homes" {
			t.Errorf("path = %q, want /prod_v1/users/me/homes", r.URL.Path)
		}
		if r.URL.Query().Get("top") != "200" {
			t.Errorf("top = %q, want 200", r.URL.Query().Get("top"))
		}
		w.Write([]byte(`{"data":[{"homeid":"h1","homename":"Loft"},{"homeid":"h2","homename":"Cabin"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	homes, err := client.Homes(context.Background())
	if err != nil {
		t.Fatalf("Homes: %v", err)
	}

	if len(homes) != 2 {
		t.Fatalf("got %d homes, want 2", len(homes))
	}
	if homes[0].HomeID != "h1" || homes[0].HomeName != "Loft" {
		t.Errorf("first home = %+v, want h1/Loft", homes[0])
	}
}

func TestHomesDecodesGzipResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Error("request did not offer gzip")
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(`{"data":[{"homeid":"h-b","homename":"Cabin"}]}`))
		gz.Close()
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	homes, err := client.Homes(context.Background())
	if err != nil {
		t.Fatalf("Homes with gzipped response: %v", err)
	}

	if len(homes) != 1 || homes[0].HomeID != "h-b" || homes[0].HomeName != "Cabin" {
		t.Errorf("homes = %+v, want one h-b/Cabin", homes)
	}
}

func TestDeviceSingleElementList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prod_v1/devices_v2/dev-1" {
			t.Errorf("path = %q, want /prod_v1/devices_v2/dev-1", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"deviceid":"dev-1","devicename":"Front Door","doorstatus":"Locked","batterypercentage":87,"serialnumber":"SN1"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	device, err := client.Device(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Device: %v", err)
	}

	if device.DoorStatus != "Locked" || device.BatteryPercentage != 87 {
		t.Errorf("device = %+v, want Locked at 87%%", device)
	}
}

func TestDeviceEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	_, err := client.Device(context.Background(), "dev-1")
	if !errors.Is(err, ErrEmptyDeviceRecord) {
		t.Errorf("Device error = %v, want ErrEmptyDeviceRecord", err)
	}
}

func TestSetStatusBody(t *testing.T) {
	var got setStatusRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %q, want PATCH", r.Method)
		}
		if r.URL.Path != "/prod_v1/devices/dev-1/status" {
			t.Errorf("path = %q, want /prod_v1/devices/dev-1/status", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	if err := client.SetStatus(context.Background(), "dev-1", "lock"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if got.Action != "lock" {
		t.Errorf("action = %q, want lock", got.Action)
	}
	// Source is a JSON-encoded string identifying the bridge.
	var source map[string]string
	if err := json.Unmarshal([]byte(got.Source), &source); err != nil {
		t.Fatalf("source is not a JSON string: %v", err)
	}
	if source["name"] == "" || source["device"] == "" {
		t.Errorf("source = %q, want name and device set", got.Source)
	}
}

func TestNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"expired"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens{}, time.Second)
	err := client.SetStatus(context.Background(), "dev-1", "lock")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", statusErr.StatusCode)
	}
}
