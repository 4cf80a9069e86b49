package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/aerox/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeStreaming,
}

// TokenResponse is the result of exchanging an authorization code.
//
// Only AccessToken is used further; the refresh token is kept for display.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Exchanger builds the authorization URL and swaps a one-time code for a token.
type Exchanger interface {
	AuthURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*TokenResponse, error)
}

// ExchangeError is the `{error, details}` body returned by the exchange service.
type ExchangeError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details"`
}

func (e *ExchangeError) Error() string {
	if e.Details == "" || e.Details == e.Message {
		return fmt.Sprintf("exchange failed (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("exchange failed (%d): %s: %s", e.Status, e.Message, e.Details)
}

// Unwrap classifies exchange failures as [shared.ErrAuthFailed].
func (e *ExchangeError) Unwrap() error {
	return shared.ErrAuthFailed
}

// RemoteExchanger talks to an external token exchange service with the
// `{action:"authorize"}` / `{action:"callback", code}` JSON contract.
//
// The service derives the redirect URI from the request Origin, so Origin is set to the
// scheme and host of the configured redirect URI.
type RemoteExchanger struct {
	endpoint   string
	origin     string
	httpClient *http.Client
}

// NewRemoteExchanger creates a [RemoteExchanger] for the service at endpoint.
func NewRemoteExchanger(endpoint, redirectURI string, httpClient *http.Client) (*RemoteExchanger, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: exchange url", shared.ErrMissingArgument)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	origin := ""
	if redirectURI != "" {
		u, err := url.Parse(redirectURI)
		if err != nil {
			return nil, fmt.Errorf("%w: redirect uri: %v", shared.ErrInvalidConfig, err)
		}
		origin = u.Scheme + "://" + u.Host
	}

	return &RemoteExchanger{endpoint: endpoint, origin: origin, httpClient: httpClient}, nil
}

// AuthURL asks the service for the authorization page URL. state is appended as a query parameter.
func (e *RemoteExchanger) AuthURL(ctx context.Context, state string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := e.post(ctx, map[string]string{"action": "authorize"}, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("%w: exchange service returned no url", shared.ErrAuthFailed)
	}

	u, err := url.Parse(out.URL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid authorization url: %v", shared.ErrAuthFailed, err)
	}
	if state != "" {
		q := u.Query()
		q.Set("state", state)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Exchange swaps code for tokens.
func (e *RemoteExchanger) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	var out TokenResponse
	if err := e.post(ctx, map[string]string{"action": "callback", "code": code}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: exchange service returned no access token", shared.ErrAuthFailed)
	}
	return &out, nil
}

func (e *RemoteExchanger) post(ctx context.Context, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode exchange request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.origin != "" {
		req.Header.Set("Origin", e.origin)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read exchange response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		exErr := &ExchangeError{Status: resp.StatusCode}
		if json.Unmarshal(body, exErr) != nil || exErr.Message == "" {
			exErr.Message = http.StatusText(resp.StatusCode)
		}
		return exErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode exchange response: %w", err)
	}
	return nil
}

// OAuthExchanger exchanges codes locally with the client secret, used when no exchange service is configured.
type OAuthExchanger struct {
	auth *spotifyauth.Authenticator
}

// NewOAuthExchanger creates an [OAuthExchanger] from Spotify credentials.
func NewOAuthExchanger(creds shared.SpotifyConfig) (*OAuthExchanger, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrMissingCredentials)
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(creds.ClientID),
		spotifyauth.WithClientSecret(creds.ClientSecret),
		spotifyauth.WithRedirectURL(creds.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	)
	return &OAuthExchanger{auth: auth}, nil
}

// AuthURL returns the Spotify authorization page URL, always showing the consent dialog.
func (e *OAuthExchanger) AuthURL(_ context.Context, state string) (string, error) {
	return e.auth.AuthURL(state, oauth2.SetAuthURLParam("show_dialog", "true")), nil
}

// Exchange swaps code for tokens against the Spotify accounts service.
func (e *OAuthExchanger) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := e.auth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &ExchangeError{
				Status:  retrieveErr.Response.StatusCode,
				Message: retrieveErr.ErrorCode,
				Details: retrieveErr.ErrorDescription,
			}
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	expiresIn := 0
	if !token.Expiry.IsZero() {
		expiresIn = int(time.Until(token.Expiry).Round(time.Second).Seconds())
	}
	return &TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// NewExchanger picks the remote exchanger when an exchange URL is configured and the local one otherwise.
func NewExchanger(cfg *shared.Config, httpClient *http.Client) (Exchanger, error) {
	if cfg.Exchange.URL != "" {
		return NewRemoteExchanger(cfg.Exchange.URL, cfg.Credentials.Spotify.RedirectURI, httpClient)
	}
	return NewOAuthExchanger(cfg.Credentials.Spotify)
}
