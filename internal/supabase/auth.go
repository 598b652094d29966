package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/bayclock/bayclock/internal/backend"
)

// tokenResp is the GoTrue token endpoint response.
type tokenResp struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
	Msg          string `json:"msg"`
}

// Auth talks to the GoTrue endpoints of a Supabase project.
type Auth struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewAuth returns an Auth for the project at baseURL.
func NewAuth(baseURL, anonKey string, timeout time.Duration) *Auth {
	return &Auth{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SignIn exchanges an email and password for a session token.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*oauth2.Token, error) {
	return a.token(ctx, "password", map[string]string{"email": email, "password": password})
}

// Refresh exchanges a refresh token for a new session token.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return a.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (a *Auth) token(ctx context.Context, grant string, body map[string]string) (*oauth2.Token, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling token request: %w", err)
	}
	endpoint := a.baseURL + "/auth/v1/token?grant_type=" + grant
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.anonKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	var tr tokenResp
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		msg := tr.ErrorDesc
		if msg == "" {
			msg = tr.Msg
		}
		return nil, fmt.Errorf("%w: %s", backend.ErrUnauthorized, msg)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &backend.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}

	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// refreshSource refreshes the session when ReuseTokenSource finds it expired.
type refreshSource struct {
	ctx     context.Context
	auth    *Auth
	current *oauth2.Token
}

func (r *refreshSource) Token() (*oauth2.Token, error) {
	if r.current == nil || r.current.RefreshToken == "" {
		return nil, fmt.Errorf("%w: session expired, run `bayclock login`", backend.ErrUnauthorized)
	}
	tok, err := r.auth.Refresh(r.ctx, r.current.RefreshToken)
	if err != nil {
		return nil, err
	}
	r.current = tok
	return tok, nil
}

// savingTokenSource wraps a TokenSource and persists tokens it has not seen.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if s.path != "" && tok.AccessToken != s.last {
		// Best-effort save; ignore errors.
		_ = SaveToken(s.path, tok)
		s.last = tok.AccessToken
	}
	return tok, nil
}

// LoadToken loads a previously saved token. A missing file returns nil, nil.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", path, err)
	}
	return &tok, nil
}

// SaveToken persists a token to disk.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}
