package domain

import "time"

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "bearer"

// AccessToken is a signed, time-bounded identity assertion. It is never stored.
type AccessToken struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}
