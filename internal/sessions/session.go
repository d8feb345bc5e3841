package sessions

import "time"

// Session is a persisted per-device login. It is created valid and without a
// refresh-token hash; once IsValid is false it is never reactivated.
type Session struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	HashedRefreshToken string    `json:"hashedRefreshToken,omitempty"`
	UserAgent          string    `json:"userAgent,omitempty"`
	IPAddress          string    `json:"ipAddress,omitempty"`
	IsValid            bool      `json:"isValid"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Meta is optional device/network metadata captured at login, stored verbatim.
type Meta struct {
	UserAgent string
	IPAddress string
}

// SessionPrincipal is the identity recovered from a refresh token matched against a session.
type SessionPrincipal struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
}
