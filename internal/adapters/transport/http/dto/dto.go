package dto

// LoginDTO accepts either the email or the username in Username, the
// way the backend's login endpoint does.
type LoginDTO struct {
	Username string `json:"username" validate:"required,min=3,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type SessionStateDTO struct {
	Authenticated bool `json:"authenticated"`
	User          any  `json:"user,omitempty"`
}
