package model

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
}

// RefreshResponse is returned by refresh. It deliberately carries no user;
// clients read identity from the access token claims.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}
