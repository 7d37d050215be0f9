package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Production identity provider endpoint and app client. These mirror
// the values the vendor mobile app uses.
const (
	defaultIDPEndpoint = "https://cognito-idp.us-east-1.amazonaws.com/"
	defaultIDPClientID = "5eu1cdkjp1itd1fi7b91m6g79s"

	idpContentType = "application/x-amz-json-1.1"

	targetInitiateAuth           = "AWSCognitoIdentityProviderService.InitiateAuth"
	targetRespondToAuthChallenge = "AWSCognitoIdentityProviderService.RespondToAuthChallenge"

	defaultIDPTimeout = 30 * time.Second
)

// CognitoProvider implements Provider against the Cognito IDP JSON
// endpoint using the CUSTOM_AUTH flow.
//
// Only the request/response fields this bridge consumes are modelled;
// the provider's full wire format is deliberately out of scope.
//
// Zero-value fields fall back to production defaults, so tests can
// point Endpoint at an httptest server without extra constructors.
type CognitoProvider struct {
	// Endpoint overrides the IDP URL. Empty means production.
	Endpoint string

	// ClientID overrides the app client id. Empty means production.
	ClientID string

	// HTTPClient overrides the transport. Nil means a default client
	// with a 30 second timeout.
	HTTPClient *http.Client
}

// NewCognitoProvider creates a provider targeting the production
// identity endpoint.
func NewCognitoProvider() *CognitoProvider {
	return &CognitoProvider{}
}

// Wire types. Field names follow the provider's JSON casing.

type idpAuthResult struct {
	IDToken      string `json:"IdToken"`
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

type idpResponse struct {
	AuthenticationResult *idpAuthResult    `json:"AuthenticationResult"`
	ChallengeName        string            `json:"ChallengeName"`
	Session              string            `json:"Session"`
	ChallengeParameters  map[string]string `json:"ChallengeParameters"`
}

type idpError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// SignIn starts a CUSTOM_AUTH flow with email and password.
func (p *CognitoProvider) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	req := map[string]any{
		"AuthFlow": "CUSTOM_AUTH",
		"ClientId": p.clientID(),
		"AuthParameters": map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	}

	resp, err := p.call(ctx, targetInitiateAuth, req)
	if err != nil {
		return nil, err
	}

	return p.toResult(resp, username), nil
}

// AnswerChallenge submits a challenge answer, carrying the latest
// session continuation token.
func (p *CognitoProvider) AnswerChallenge(ctx context.Context, challenge *ChallengeSession, answer string) (*SignInResult, error) {
	req := map[string]any{
		"ClientId":      p.clientID(),
		"ChallengeName": challenge.Kind,
		"Session":       challenge.Session,
		"ChallengeResponses": map[string]string{
			"USERNAME": challenge.Username,
			"ANSWER":   answer,
		},
	}

	resp, err := p.call(ctx, targetRespondToAuthChallenge, req)
	if err != nil {
		return nil, err
	}

	return p.toResult(resp, challenge.Username), nil
}

// Refresh exchanges a refresh token for fresh id and access tokens.
// The provider does not rotate the refresh token on this flow, so the
// returned Tokens carry an empty RefreshToken.
func (p *CognitoProvider) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	req := map[string]any{
		"AuthFlow": "REFRESH_TOKEN_AUTH",
		"ClientId": p.clientID(),
		"AuthParameters": map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	}

	resp, err := p.call(ctx, targetInitiateAuth, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if resp.AuthenticationResult == nil {
		return nil, fmt.Errorf("%w: no authentication result", ErrRefreshFailed)
	}

	return &Tokens{
		IDToken:      resp.AuthenticationResult.IDToken,
		AccessToken:  resp.AuthenticationResult.AccessToken,
		RefreshToken: resp.AuthenticationResult.RefreshToken,
	}, nil
}

// toResult converts a provider response into a SignInResult.
func (p *CognitoProvider) toResult(resp *idpResponse, username string) *SignInResult {
	if resp.AuthenticationResult != nil {
		return &SignInResult{
			Tokens: &Tokens{
				IDToken:      resp.AuthenticationResult.IDToken,
				AccessToken:  resp.AuthenticationResult.AccessToken,
				RefreshToken: resp.AuthenticationResult.RefreshToken,
			},
		}
	}

	// Challenge continues. The provider may echo the username in
	// challenge parameters; prefer it over the caller's value.
	if u, ok := resp.ChallengeParameters["USERNAME"]; ok && u != "" {
		username = u
	}

	return &SignInResult{
		Challenge: &ChallengeSession{
			Kind:     resp.ChallengeName,
			Session:  resp.Session,
			Username: username,
		},
	}
}

// call performs a single IDP request and decodes the response.
func (p *CognitoProvider) call(ctx context.Context, target string, body any) (*idpResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding idp request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building idp request: %w", err)
	}
	httpReq.Header.Set("Content-Type", idpContentType)
	httpReq.Header.Set("X-Amz-Target", target)

	httpResp, err := p.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("idp request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading idp response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyIDPError(target, respBody, httpResp.StatusCode)
	}

	var resp idpResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding idp response: %w", err)
	}

	return &resp, nil
}

// classifyIDPError maps provider error responses to sentinel errors.
func classifyIDPError(target string, body []byte, status int) error {
	var idpErr idpError
	if err := json.Unmarshal(body, &idpErr); err != nil || idpErr.Type == "" {
		return fmt.Errorf("idp returned status %d", status)
	}

	switch idpErr.Type {
	case "NotAuthorizedException", "UserNotFoundException":
		if target == targetRespondToAuthChallenge {
			return fmt.Errorf("%w: %s", ErrChallengeRejected, idpErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrBadCredentials, idpErr.Message)
	case "CodeMismatchException", "InvalidParameterException":
		return fmt.Errorf("%w: %s", ErrChallengeRejected, idpErr.Message)
	default:
		return fmt.Errorf("idp error %s: %s", idpErr.Type, idpErr.Message)
	}
}

func (p *CognitoProvider) endpoint() string {
	if p.Endpoint != "" {
		return p.Endpoint
	}
	return defaultIDPEndpoint
}

func (p *CognitoProvider) clientID() string {
	if p.ClientID != "" {
		return p.ClientID
	}
	return defaultIDPClientID
}

func (p *CognitoProvider) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: defaultIDPTimeout}
}
