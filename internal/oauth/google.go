package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"aurenix/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var ErrExchange = errors.New("oauth exchange failed")

// Assertion is the identity the provider vouched for after a completed handshake.
type Assertion struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return newGoogleProvider(cfg, google.Endpoint, googleUserInfoURL)
}

func newGoogleProvider(cfg config.OAuthConfig, endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"profile", "email"}
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback code for a token and reads the account's
// profile from the userinfo endpoint.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (Assertion, error) {
	if code == "" {
		return Assertion{}, fmt.Errorf("%w: missing code", ErrExchange)
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return Assertion{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return Assertion{}, fmt.Errorf("userinfo request: %w", err)
	}
	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return Assertion{}, fmt.Errorf("%w: userinfo: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Assertion{}, fmt.Errorf("%w: userinfo status %d: %s", ErrExchange, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return Assertion{}, fmt.Errorf("%w: decode userinfo: %v", ErrExchange, err)
	}

	return Assertion{
		Provider:      "google",
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: bool(info.EmailVerified),
		Name:          info.Name,
	}, nil
}

type userInfo struct {
	Sub           string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
}

// flexBool accepts both true and "true"; userinfo versions disagree.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch strings.ToLower(s) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}
