package domain

// CredentialsRequest is the body of register and login calls.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordRequest is the body of a password change.
type ChangePasswordRequest struct {
	Current string `json:"current" validate:"required"`
	Next    string `json:"next" validate:"required,min=6"`
}

// CreateSessionRequest is the body of a session creation call. Both fields are optional.
type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
	Model string `json:"model" validate:"max=100"`
}

// UpdateSessionRequest edits a session. Nil fields are left untouched.
type UpdateSessionRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
	Model *string `json:"model" validate:"omitempty,max=100"`
}

// ChatStreamRequest starts one chat turn.
type ChatStreamRequest struct {
	SessionID   string        `json:"sessionId" validate:"required"`
	Model       string        `json:"model" validate:"max=100"`
	Messages    []ChatMessage `json:"messages" validate:"dive"`
	Temperature *float64      `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ErrorResponse is the body of an ordinary (non-stream) failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
