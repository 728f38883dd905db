package domain

import "time"

// SessionRecord is the server-side source of truth for one active login.
// It lives in the session store under (UserID, Platform) and is what makes
// a self-contained signed token revocable: the gate admits a request only
// when the presented token matches CurrentAccessToken.
type SessionRecord struct {
	UserID             int64  `json:"user_id"`
	UserName           string `json:"user_name"`
	Mobile             string `json:"mobile,omitempty"`
	CurrentAccessToken string `json:"current_access_token"`
}

// LoginUser is the caller-visible session returned after login or refresh.
type LoginUser struct {
	UserID               int64     `json:"user_id"`
	Mobile               string    `json:"mobile,omitempty"`
	AccessToken          string    `json:"access_token"`
	RefreshToken         string    `json:"refresh_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}
