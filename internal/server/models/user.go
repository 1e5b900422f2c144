package models

import "time"

const (
	TierFree = "free"
	TierPro  = "pro"
)

type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	Tier      string
	CreatedAt time.Time
}

// ValidTier reports whether tier is a known membership tier.
func ValidTier(tier string) bool {
	return tier == TierFree || tier == TierPro
}
