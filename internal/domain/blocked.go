package domain

// BlockedContact is one live blocklist entry. At most one entry exists per IP
// address; the store rejects duplicates with ErrAlreadyExists.
type BlockedContact struct {
	ID        string `json:"id"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	IsBlocked bool   `json:"is_blocked"`
}
