package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ai-minutes-client/internal/apierror"
	"ai-minutes-client/internal/dto"
	"ai-minutes-client/internal/entity"
	"ai-minutes-client/internal/identity"
	"ai-minutes-client/internal/pkg/logger"
	"ai-minutes-client/internal/tokenstore"
	"ai-minutes-client/internal/transport"
)

type ISessionService interface {
	Restore(ctx context.Context)
	Register(ctx context.Context, req *dto.RegisterRequest) bool
	Login(ctx context.Context, req *dto.LoginRequest) bool
	GoogleLogin(ctx context.Context, providerToken string) bool
	Logout(ctx context.Context) bool
	ForgotPassword(ctx context.Context, email string) bool
	ResetPassword(ctx context.Context, resetToken, newPassword string) bool
	Snapshot() entity.Session
	IsAuthenticated() bool
	ClearError()
	HandleUnauthorized()
	SetOnForcedLogout(fn func())
}

// sessionService owns the authentication state machine. All token writes go
// through here: explicit register/login/logout calls, and the transport's
// unauthorized hook (HandleUnauthorized).
type sessionService struct {
	client    *transport.Client
	tokens    *tokenstore.Store
	exchanger identity.Exchanger
	log       logger.ILogger

	mu             sync.Mutex
	currentUser    *entity.UserProfile
	authenticated  bool
	loading        bool
	errMsg         string
	tokenExpiresAt time.Time
	onForcedLogout func()
}

func NewSessionService(client *transport.Client, tokens *tokenstore.Store, exchanger identity.Exchanger, log logger.ILogger) ISessionService {
	s := &sessionService{
		client:    client,
		tokens:    tokens,
		exchanger: exchanger,
		log:       log,
		loading:   true, // Unknown until Restore completes
	}
	client.SetUnauthorizedHook(s.HandleUnauthorized)
	return s
}

// Restore rehydrates the session from the persisted token, once, at
// start-up. With no token it settles to anonymous without a network call.
// Any failure discards the token; the state is never left unknown.
func (s *sessionService) Restore(ctx context.Context) {
	token, err := s.tokens.Load()
	if err != nil || token == "" {
		s.setAnonymous("")
		return
	}

	var profile entity.UserProfile
	if err := s.client.Get(ctx, "/auth/me", &profile); err != nil {
		s.log.Warn("session", "stored token rejected, clearing", map[string]interface{}{"error": err.Error()})
		_ = s.tokens.Clear()
		s.setAnonymous("")
		return
	}

	s.mu.Lock()
	s.currentUser = &profile
	s.authenticated = true
	s.loading = false
	s.errMsg = ""
	s.tokenExpiresAt = tokenExpiry(token)
	s.mu.Unlock()

	s.log.Info("session", "session restored", map[string]interface{}{"user_id": profile.Id})
}

func (s *sessionService) Register(ctx context.Context, req *dto.RegisterRequest) bool {
	return s.establish(ctx, "register", func() (*dto.TokenResponse, error) {
		var res dto.TokenResponse
		err := s.client.Post(ctx, "/auth/register", req, &res)
		return &res, err
	}, "Registration failed")
}

func (s *sessionService) Login(ctx context.Context, req *dto.LoginRequest) bool {
	return s.establish(ctx, "login", func() (*dto.TokenResponse, error) {
		var res dto.TokenResponse
		err := s.client.Post(ctx, "/auth/login", req, &res)
		return &res, err
	}, "Login failed")
}

// GoogleLogin exchanges the provider credential for an identity claim, then
// trades the claim for a session token.
func (s *sessionService) GoogleLogin(ctx context.Context, providerToken string) bool {
	claim, err := s.exchanger.Exchange(ctx, providerToken)
	if err != nil {
		s.setError(userMessage(err, "Google login failed"))
		s.log.Warn("session", "identity exchange failed", map[string]interface{}{"error": err.Error()})
		return false
	}

	req := &dto.GoogleLoginRequest{
		GoogleId: claim.ProviderId,
		Email:    claim.Email,
		Name:     claim.Name,
	}
	return s.establish(ctx, "google-login", func() (*dto.TokenResponse, error) {
		var res dto.TokenResponse
		err := s.client.Post(ctx, "/auth/google", req, &res)
		return &res, err
	}, "Google login failed")
}

// establish runs the shared tail of all sign-in paths: obtain a token,
// persist it, then fetch the profile. Either everything lands or the state
// stays anonymous; there is no partial transition.
func (s *sessionService) establish(ctx context.Context, op string, obtain func() (*dto.TokenResponse, error), fallback string) bool {
	s.setLoading()

	res, err := obtain()
	if err != nil {
		s.setAnonymous(userMessage(err, fallback))
		s.log.Warn("session", op+" failed", map[string]interface{}{"error": err.Error()})
		return false
	}

	if err := s.tokens.Save(res.Token); err != nil {
		s.setAnonymous("Could not persist session, please try again")
		s.log.Error("session", "token persist failed", map[string]interface{}{"error": err.Error()})
		return false
	}

	var profile entity.UserProfile
	if err := s.client.Get(ctx, "/auth/me", &profile); err != nil {
		_ = s.tokens.Clear()
		s.setAnonymous(userMessage(err, fallback))
		s.log.Warn("session", op+" profile fetch failed", map[string]interface{}{"error": err.Error()})
		return false
	}

	s.mu.Lock()
	s.currentUser = &profile
	s.authenticated = true
	s.loading = false
	s.errMsg = ""
	s.tokenExpiresAt = tokenExpiry(res.Token)
	s.mu.Unlock()

	s.log.Info("session", op+" succeeded", map[string]interface{}{"user_id": profile.Id})
	return true
}

// Logout tells the server best-effort, then always clears local state.
func (s *sessionService) Logout(ctx context.Context) bool {
	s.setLoading()

	remoteErr := s.client.Get(ctx, "/auth/logout", nil)
	if remoteErr != nil {
		s.log.Warn("session", "remote logout failed", map[string]interface{}{"error": remoteErr.Error()})
	}

	_ = s.tokens.Clear()
	if remoteErr != nil && !apierror.Is(remoteErr, apierror.CodeSessionExpired) {
		s.setAnonymous(userMessage(remoteErr, "Logout failed"))
		return false
	}
	s.setAnonymous("")
	s.log.Info("session", "logged out", nil)
	return true
}

func (s *sessionService) ForgotPassword(ctx context.Context, email string) bool {
	var ack dto.AckResponse
	err := s.client.Post(ctx, "/auth/forgotpassword", &dto.ForgotPasswordRequest{Email: email}, &ack)
	if err != nil {
		s.setError(userMessage(err, "Could not send reset email"))
		return false
	}
	return true
}

func (s *sessionService) ResetPassword(ctx context.Context, resetToken, newPassword string) bool {
	var ack dto.AckResponse
	err := s.client.Put(ctx, "/auth/resetpassword/"+resetToken, &dto.ResetPasswordRequest{Password: newPassword}, &ack)
	if err != nil {
		s.setError(userMessage(err, "Could not reset password"))
		return false
	}
	return true
}

// HandleUnauthorized is the global 401 side effect: discard the token and
// force the anonymous state, regardless of which call tripped it. Wired as
// the transport's unauthorized hook.
func (s *sessionService) HandleUnauthorized() {
	_ = s.tokens.Clear()

	s.mu.Lock()
	wasAuthenticated := s.authenticated
	s.currentUser = nil
	s.authenticated = false
	s.loading = false
	s.errMsg = "Your session has expired. Please sign in again."
	s.tokenExpiresAt = time.Time{}
	hook := s.onForcedLogout
	s.mu.Unlock()

	if wasAuthenticated {
		s.log.Warn("session", "forced logout after unauthorized response", nil)
	}
	if hook != nil {
		hook()
	}
}

// SetOnForcedLogout registers the navigation callback invoked after a
// forced logout (the CLI points the user at the sign-in command).
func (s *sessionService) SetOnForcedLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onForcedLogout = fn
}

func (s *sessionService) Snapshot() entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := entity.Session{
		IsAuthenticated: s.authenticated,
		Loading:         s.loading,
		Error:           s.errMsg,
		TokenExpiresAt:  s.tokenExpiresAt,
	}
	if s.currentUser != nil {
		user := *s.currentUser
		snap.CurrentUser = &user
	}
	return snap
}

func (s *sessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *sessionService) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

func (s *sessionService) setLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.errMsg = ""
}

func (s *sessionService) setAnonymous(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = nil
	s.authenticated = false
	s.loading = false
	s.errMsg = errMsg
	s.tokenExpiresAt = time.Time{}
}

func (s *sessionService) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	s.loading = false
}

// tokenExpiry parses the token's exp claim without verifying the signature.
// Informational only; the server remains the authority on validity.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// userMessage extracts the dismissible message from a taxonomy error, or
// falls back to the operation-specific default.
func userMessage(err error, fallback string) string {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return fallback
}
