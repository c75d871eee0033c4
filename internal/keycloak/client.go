// Package keycloak provides a client for obtaining access tokens from the
// Keycloak OpenID Connect token endpoint via the OAuth2 password grant.
package keycloak

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-resty/resty/v2"
)

// Defaults applied by NewClient for unset Config fields.
const (
	DefaultClientID  = "admin-cli"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "keycloak-token"
)

// Config holds the connection parameters and credentials for a token request.
//
// ClientID, Username and Password are pointers because absent and empty are
// different things on the wire: an absent field is omitted from the form
// payload entirely, while an empty string is submitted as an empty value.
type Config struct {
	// BaseURL is the Keycloak base URL, e.g. https://auth.example.com/auth.
	// It must start with "http" or "https" (case-insensitive).
	BaseURL string

	// Realm is the realm to authenticate against. It is interpolated into
	// the endpoint path verbatim; an unset realm produces a malformed
	// endpoint rather than an error.
	Realm string

	// ClientID is the OpenID Connect client_id. Nil defaults to admin-cli.
	ClientID *string

	// Username and Password form the password-grant credential pair.
	Username *string
	Password *string

	// InsecureSkipVerify disables TLS certificate validation.
	InsecureSkipVerify bool

	// Timeout bounds the whole token request. Zero means DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent as the User-Agent header. Empty means
	// DefaultUserAgent.
	UserAgent string
}

// KeycloakError is the single failure value returned for any token request
// that does not yield a token. Failure classes are distinguished by message
// text only. The message never contains the password or a token.
type KeycloakError struct {
	Msg string
}

func (e *KeycloakError) Error() string {
	return e.Msg
}

// Client fetches access tokens from a Keycloak instance
type Client struct {
	cfg        Config
	httpClient *resty.Client
	log        logr.Logger
}

// NewClient creates a new token client, applying Config defaults
func NewClient(cfg Config, log logr.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	if cfg.InsecureSkipVerify {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log.WithName("keycloak-client"),
	}
}

// TokenURL returns the token endpoint for the configured base URL and realm.
// Both values are interpolated verbatim, without URL-encoding; downstream
// compatibility depends on the exact endpoint shape.
func (c *Client) TokenURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.BaseURL, c.cfg.Realm)
}

// FetchToken performs a single password-grant request against the token
// endpoint and returns the access token. Every failure is a *KeycloakError
// and is terminal: no retries, no fallback endpoint.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	if !strings.HasPrefix(strings.ToLower(c.cfg.BaseURL), "http") {
		return "", &KeycloakError{Msg: fmt.Sprintf(
			"auth_url '%s' should either start with 'http' or 'https'.", c.cfg.BaseURL)}
	}

	tokenURL := c.TokenURL()

	// The client_id default is applied before omission-filtering, so it is
	// always present in the payload. Username and password are omitted when
	// unset, but an empty string set deliberately is submitted as-is.
	clientID := DefaultClientID
	if c.cfg.ClientID != nil {
		clientID = *c.cfg.ClientID
	}

	formData := map[string]string{
		"grant_type": "password",
		"client_id":  clientID,
	}
	if c.cfg.Username != nil {
		formData["username"] = *c.cfg.Username
	}
	if c.cfg.Password != nil {
		formData["password"] = *c.cfg.Password
	}

	c.log.V(1).Info("requesting access token", "url", tokenURL, "clientID", clientID)

	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(formData).
		Post(tokenURL)
	TokenRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		RecordTokenRequest(false)
		return "", &KeycloakError{Msg: fmt.Sprintf(
			"Could not obtain access token from %s: %s", tokenURL, err)}
	}
	if resp.IsError() {
		RecordTokenRequest(false)
		return "", &KeycloakError{Msg: fmt.Sprintf(
			"Could not obtain access token from %s: %s: %s", tokenURL, resp.Status(), string(resp.Body()))}
	}

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		RecordTokenRequest(false)
		return "", &KeycloakError{Msg: fmt.Sprintf(
			"API returned invalid JSON when trying to obtain access token from %s: %s", tokenURL, err)}
	}

	token, ok := body["access_token"].(string)
	if !ok {
		RecordTokenRequest(false)
		return "", &KeycloakError{Msg: fmt.Sprintf(
			"Could not obtain access token from %s", tokenURL)}
	}

	RecordTokenRequest(true)
	return token, nil
}
