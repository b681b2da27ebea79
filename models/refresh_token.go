package models

import "time"

// RefreshToken is one entry in a refresh-token rotation chain. Every
// successful login opens a new chain; every successful refresh appends an
// entry to the chain and invalidates the previous one. The raw token is
// never stored, only its sha256 hash. AccessTokenID records the jti of the
// access token issued alongside this entry so that refresh requests can be
// cross-checked against the pair they were issued as.
type RefreshToken struct {
	ID                uint `gorm:"primaryKey"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	UserID            uint      `gorm:"not null;index:idx_refresh_user_chain"`
	ChainID           string    `gorm:"size:36;not null;index:idx_refresh_user_chain"`
	TokenHash         string    `gorm:"size:128;not null;uniqueIndex"`
	AccessTokenID     string    `gorm:"size:36;not null"`
	Valid             bool      `gorm:"default:true;not null"`
	InvalidatedReason string    `gorm:"size:32"`
	ExpiresAt         time.Time `gorm:"index;not null"`
	// FCMToken is the push-delivery token registered for the device holding
	// this session, carried forward across rotations.
	FCMToken string `gorm:"size:512"`
}
