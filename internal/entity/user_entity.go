package entity

// UserProfile is the remote service's view of the signed-in user. Read-only
// on the client; cached by the session service.
type UserProfile struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
