package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"ai-minutes-client/internal/apierror"
)

func newTestExchanger(t *testing.T, userinfo string, status int) *GoogleExchanger {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(userinfo))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &GoogleExchanger{
		conf: &oauth2.Config{
			ClientID:     "cid",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  server.URL + "/auth",
				TokenURL: server.URL + "/token",
			},
		},
		userInfoURL: server.URL + "/userinfo?access_token=",
	}
}

func TestExchange(t *testing.T) {
	ex := newTestExchanger(t, `{"id":"g-42","email":"ada@example.com","name":"Ada"}`, http.StatusOK)

	claim, err := ex.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "g-42", claim.ProviderId)
	assert.Equal(t, "ada@example.com", claim.Email)
	assert.Equal(t, "Ada", claim.Name)
}

func TestExchangeRejectsIncompleteProfile(t *testing.T) {
	ex := newTestExchanger(t, `{"name":"Ada"}`, http.StatusOK)

	_, err := ex.Exchange(context.Background(), "auth-code")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.CodeAuth))
}

func TestLoginURLContainsState(t *testing.T) {
	ex := NewGoogleExchanger("cid", "secret", "http://localhost/callback")
	url := ex.LoginURL()
	assert.Contains(t, url, "state=")
	assert.Contains(t, url, "client_id=cid")
}
