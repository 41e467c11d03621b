// Package trakt implements the Trakt OAuth authorization-code flow and the
// user settings lookup that follows it.
package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/handsomefox/nextep/internal/upstream"
)

const (
	DefaultAuthBaseURL = "https://trakt.tv"
	DefaultAPIBaseURL  = "https://api.trakt.tv"

	apiVersion = "2"
	service    = "trakt"
)

var ErrMissingCredential = errors.New("trakt: client id and client secret are required")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthBaseURL  string
	APIBaseURL   string
	HTTPClient   *http.Client
}

type Client struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authBase     string
	apiBase      string
	http         *http.Client
}

// Token is the result of a code exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
}

// Lifetime is the declared token lifetime.
func (t *Token) Lifetime() time.Duration {
	return time.Duration(t.ExpiresIn) * time.Second
}

type User struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	VIP      bool   `json:"vip"`
	IDs      struct {
		Slug string `json:"slug"`
	} `json:"ids"`
	Images struct {
		Avatar struct {
			Full string `json:"full"`
		} `json:"avatar"`
	} `json:"images"`
}

type Settings struct {
	User    User `json:"user"`
	Account struct {
		Timezone string `json:"timezone"`
		CoverImg string `json:"cover_image"`
	} `json:"account"`
}

type tokenRequest struct {
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	GrantType    string `json:"grant_type"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func New(cfg Config) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredential
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  cfg.RedirectURI,
		authBase:     baseOr(cfg.AuthBaseURL, DefaultAuthBaseURL),
		apiBase:      baseOr(cfg.APIBaseURL, DefaultAPIBaseURL),
		http:         hc,
	}, nil
}

// AuthorizeURL is where the browser is sent to grant access.
func (c *Client) AuthorizeURL() string {
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", c.clientID)
	values.Set("redirect_uri", c.redirectURI)
	return c.authBase + "/oauth/authorize?" + values.Encode()
}

// Exchange trades an authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("trakt: empty authorization code")
	}
	body, err := json.Marshal(tokenRequest{
		Code:         code,
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RedirectURI:  c.redirectURI,
		GrantType:    "authorization_code",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var tok Token
	if err := upstream.Do(c.http, service, req, &tok, decodeError); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, errors.New("trakt: token response without access_token")
	}
	return &tok, nil
}

// UserSettings fetches the profile of the token's owner.
func (c *Client) UserSettings(ctx context.Context, accessToken string) (*Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/users/settings", http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.clientID)

	var settings Settings
	if err := upstream.Do(c.http, service, req, &settings, decodeError); err != nil {
		return nil, err
	}
	return &settings, nil
}

func decodeError(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.ErrorDescription != "" {
		return payload.ErrorDescription
	}
	return payload.Error
}

func baseOr(v, fallback string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return fallback
	}
	return v
}
