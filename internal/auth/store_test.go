package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)

	want := &Tokens{
		IDToken:      "id-token",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil tokens after Save")
	}
	if *got != *want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load of absent file should not error, got: %v", err)
	}
	if got != nil {
		t.Errorf("Load of absent file = %+v, want nil", got)
	}
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	store := NewFileStore(path)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load of corrupt file should not error, got: %v", err)
	}
	if got != nil {
		t.Errorf("Load of corrupt file = %+v, want nil (fresh login)", got)
	}
}

func TestFileStoreSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(path)

	first := &Tokens{IDToken: "a", AccessToken: "b", RefreshToken: "c"}
	second := &Tokens{IDToken: "x", AccessToken: "y", RefreshToken: "z"}

	if err := store.Save(first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *second {
		t.Errorf("Load = %+v, want the second record %+v", got, second)
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "credentials.json")
	store := NewFileStore(path)

	if err := store.Save(&Tokens{RefreshToken: "r"}); err != nil {
		t.Fatalf("Save into missing directory failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("credential file not created: %v", err)
	}
}
