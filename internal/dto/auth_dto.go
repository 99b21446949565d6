package dto

// Requests and responses for the /auth endpoints.

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries the profile fields obtained from the identity
// exchange. The server matches or creates the account by email.
type GoogleLoginRequest struct {
	GoogleId string `json:"googleId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type AckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
