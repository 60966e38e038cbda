package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteProvider talks to a GoTrue-style identity provider admin API over
// JSON/HTTP. Nothing is retried here; a provider fault is surfaced to the
// caller as ErrUnavailable and retry policy stays with the caller.
type RemoteProvider struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewRemoteProvider constructs an adapter for the provider at baseURL,
// authenticating admin calls with the given service-role key.
func NewRemoteProvider(baseURL, serviceKey string) *RemoteProvider {
	return &RemoteProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type remoteUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u remoteUser) principal() *Principal {
	return &Principal{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

func (p *RemoteProvider) VerifyToken(ctx context.Context, token string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var u remoteUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return u.principal(), nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrTokenInvalid
	default:
		return nil, fmt.Errorf("%w: verify token: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (p *RemoteProvider) CreatePrincipal(ctx context.Context, email, password string, metadata map[string]any) (*Principal, error) {
	body, err := json.Marshal(map[string]any{
		"email":         email,
		"password":      password,
		"user_metadata": metadata,
		// auto-confirm: no email server is configured for this deployment
		"email_confirm": true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := p.adminDo(ctx, http.MethodPost, "/admin/users", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var u remoteUser
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return u.principal(), nil
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrEmailTaken
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, ErrInvalidCredential
	default:
		return nil, fmt.Errorf("%w: create principal: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (p *RemoteProvider) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	path := "/admin/users?email=" + url.QueryEscape(normalizeEmail(email))
	resp, err := p.adminDo(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list principals: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out struct {
		Users []remoteUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	want := normalizeEmail(email)
	for _, u := range out.Users {
		if normalizeEmail(u.Email) == want {
			return u.principal(), nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (p *RemoteProvider) adminDo(ctx context.Context, method, path string, body *bytes.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}
