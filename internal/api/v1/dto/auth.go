package dto

// LoginRequest is the demo login payload. The password is the shared demo
// value; the email must hold at least one subscription.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
