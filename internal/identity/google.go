package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"ai-minutes-client/internal/apierror"
)

// Claim is the identity handed back by a third-party provider after a
// successful exchange. The session service forwards it to the server, which
// matches or creates the account by email.
type Claim struct {
	ProviderId string
	Email      string
	Name       string
}

// Exchanger swaps a provider credential for a verified identity claim. The
// concrete provider is swappable without touching session logic.
type Exchanger interface {
	Exchange(ctx context.Context, providerToken string) (*Claim, error)
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo?access_token="

// GoogleExchanger implements Exchanger against Google's OAuth2 endpoints.
// The provider credential is the authorization code from the consent flow.
type GoogleExchanger struct {
	conf *oauth2.Config
	// userInfoURL is overridable for tests.
	userInfoURL string
}

func NewGoogleExchanger(clientID, clientSecret, redirectURL string) *GoogleExchanger {
	return &GoogleExchanger{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// LoginURL returns the consent URL the user must visit to obtain an
// authorization code.
func (g *GoogleExchanger) LoginURL() string {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)
	return g.conf.AuthCodeURL(state)
}

func (g *GoogleExchanger) Exchange(ctx context.Context, providerToken string) (*Claim, error) {
	token, err := g.conf.Exchange(ctx, providerToken)
	if err != nil {
		return nil, apierror.NewAuth("google sign-in failed: code exchange rejected")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL+token.AccessToken, nil)
	if err != nil {
		return nil, apierror.NewNetwork("failed to build userinfo request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, apierror.NewNetwork("could not reach google", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.NewNetwork("failed reading userinfo response", err)
	}

	var googleUser struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(content, &googleUser); err != nil {
		return nil, apierror.NewAuth("google sign-in failed: unexpected userinfo payload")
	}
	if googleUser.ID == "" || googleUser.Email == "" {
		return nil, apierror.NewAuth("google sign-in failed: incomplete profile")
	}

	return &Claim{
		ProviderId: googleUser.ID,
		Email:      googleUser.Email,
		Name:       googleUser.Name,
	}, nil
}
