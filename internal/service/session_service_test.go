package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-minutes-client/internal/apierror"
	"ai-minutes-client/internal/dto"
	"ai-minutes-client/internal/identity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/tokenstore"
	"ai-minutes-client/internal/transport"
)

type fakeExchanger struct {
	claim *identity.Claim
	err   error
	calls int
}

func (f *fakeExchanger) Exchange(ctx context.Context, providerToken string) (*identity.Claim, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.claim, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// newSessionFixture wires a session service against an httptest server.
func newSessionFixture(t *testing.T, handler http.Handler) (ISessionService, *tokenstore.Store, *transport.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := tokenstore.New(t.TempDir())
	client := transport.NewClient(server.URL, 5*time.Second, tokens, logger.NewNop())
	svc := NewSessionService(client, tokens, &fakeExchanger{}, logger.NewNop())
	return svc, tokens, client
}

func authMux(token string, calls *atomic.Int64) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		json.NewEncoder(w).Encode(dto.TokenResponse{Token: token})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com"}`))
	})
	mux.HandleFunc("GET /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	return mux
}

func TestRestoreWithoutTokenMakesNoNetworkCall(t *testing.T) {
	var calls atomic.Int64
	svc, _, _ := newSessionFixture(t, authMux("tok", &calls))

	svc.Restore(context.Background())

	snap := svc.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.CurrentUser)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRestoreWithValidToken(t *testing.T) {
	svc, tokens, _ := newSessionFixture(t, authMux("tok", nil))
	require.NoError(t, tokens.Save("tok"))

	svc.Restore(context.Background())

	snap := svc.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	require.NotNil(t, snap.CurrentUser)
	assert.Equal(t, "ada@example.com", snap.CurrentUser.Email)
}

func TestRestoreWithRejectedTokenClearsIt(t *testing.T) {
	svc, tokens, _ := newSessionFixture(t, authMux("tok", nil))
	require.NoError(t, tokens.Save("stale"))

	svc.Restore(context.Background())

	assert.False(t, svc.IsAuthenticated())
	stored, _ := tokens.Load()
	assert.Equal(t, "", stored)
}

func TestLoginSuccess(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour)
	token := signedToken(t, exp)
	svc, tokens, _ := newSessionFixture(t, authMux(token, nil))

	ok := svc.Login(context.Background(), &dto.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.True(t, ok)

	snap := svc.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "Ada", snap.CurrentUser.Name)
	assert.Equal(t, "", snap.Error)
	assert.WithinDuration(t, exp, snap.TokenExpiresAt, time.Second)

	stored, _ := tokens.Load()
	assert.Equal(t, token, stored)
}

func TestLoginFailureLeavesAnonymous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid credentials"}`))
	})
	svc, tokens, _ := newSessionFixture(t, mux)

	ok := svc.Login(context.Background(), &dto.LoginRequest{Email: "x", Password: "y"})
	assert.False(t, ok)

	snap := svc.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, "invalid credentials", snap.Error)
	stored, _ := tokens.Load()
	assert.Equal(t, "", stored)
}

func TestLoginProfileFetchFailureDoesNotPartiallyTransition(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.TokenResponse{Token: "tok"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, tokens, _ := newSessionFixture(t, mux)

	ok := svc.Login(context.Background(), &dto.LoginRequest{Email: "x", Password: "y"})
	assert.False(t, ok)
	assert.False(t, svc.IsAuthenticated())
	stored, _ := tokens.Load()
	assert.Equal(t, "", stored)
}

func TestGoogleLogin(t *testing.T) {
	var gotBody dto.GoogleLoginRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/google", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(dto.TokenResponse{Token: "tok"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tokens := tokenstore.New(t.TempDir())
	client := transport.NewClient(server.URL, 5*time.Second, tokens, logger.NewNop())
	exchanger := &fakeExchanger{claim: &identity.Claim{ProviderId: "g-1", Email: "ada@example.com", Name: "Ada"}}
	svc := NewSessionService(client, tokens, exchanger, logger.NewNop())

	ok := svc.GoogleLogin(context.Background(), "auth-code")
	require.True(t, ok)
	assert.Equal(t, 1, exchanger.calls)
	assert.Equal(t, "g-1", gotBody.GoogleId)
	assert.True(t, svc.IsAuthenticated())
}

func TestGoogleLoginExchangeFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(server.Close)

	tokens := tokenstore.New(t.TempDir())
	client := transport.NewClient(server.URL, 5*time.Second, tokens, logger.NewNop())
	exchanger := &fakeExchanger{err: apierror.NewAuth("google sign-in failed: code exchange rejected")}
	svc := NewSessionService(client, tokens, exchanger, logger.NewNop())

	ok := svc.GoogleLogin(context.Background(), "bad-code")
	assert.False(t, ok)
	assert.False(t, svc.IsAuthenticated())
	assert.Equal(t, int64(0), calls.Load(), "a failed exchange must not reach the server")
	assert.NotEmpty(t, svc.Snapshot().Error)
}

func TestLogoutClearsStateEvenWhenRemoteFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.TokenResponse{Token: "tok"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com"}`))
	})
	mux.HandleFunc("GET /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, tokens, _ := newSessionFixture(t, mux)

	require.True(t, svc.Login(context.Background(), &dto.LoginRequest{Email: "a", Password: "b"}))

	ok := svc.Logout(context.Background())
	assert.False(t, ok, "remote failure is surfaced")
	assert.False(t, svc.IsAuthenticated(), "local cleanup happens regardless")
	stored, _ := tokens.Load()
	assert.Equal(t, "", stored)
}

func TestGlobalUnauthorizedSideEffect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.TokenResponse{Token: "tok"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com"}`))
	})
	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	svc, tokens, client := newSessionFixture(t, mux)

	forced := false
	svc.SetOnForcedLogout(func() { forced = true })

	require.True(t, svc.Login(context.Background(), &dto.LoginRequest{Email: "a", Password: "b"}))

	// A 401 on an unrelated call must tear the session down globally.
	err := client.Get(context.Background(), "/summary", nil)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.CodeSessionExpired))

	assert.False(t, svc.IsAuthenticated())
	stored, _ := tokens.Load()
	assert.Equal(t, "", stored)
	assert.True(t, forced)
	assert.NotEmpty(t, svc.Snapshot().Error)
}

func TestForgotAndResetPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/forgotpassword", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.AckResponse{Success: true})
	})
	mux.HandleFunc("PUT /auth/resetpassword/reset-tok", func(w http.ResponseWriter, r *http.Request) {
		var req dto.ResetPasswordRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(dto.AckResponse{Success: true})
	})
	svc, _, _ := newSessionFixture(t, mux)

	assert.True(t, svc.ForgotPassword(context.Background(), "ada@example.com"))
	assert.True(t, svc.ResetPassword(context.Background(), "reset-tok", "newpw"))
}
