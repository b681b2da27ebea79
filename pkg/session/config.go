package session

import (
	"fmt"
	"time"
)

const defaultRefreshTokenBytes = 32

// Config carries the secrets and durations the session subsystem needs. It is
// constructed once at process start and injected; there are no package-level
// globals.
type Config struct {
	// AccessTokenSecret signs HS256 access tokens.
	AccessTokenSecret []byte

	// AccessTokenTTL is the access-token lifetime (short, minutes to hours).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh-token lifetime (long, days to weeks).
	RefreshTokenTTL time.Duration

	// RefreshTokenBytes is the entropy of opaque refresh tokens. Defaults to 32.
	RefreshTokenBytes int
}

// Validate returns ErrConfig when a secret or duration is missing.
func (c Config) Validate() error {
	if len(c.AccessTokenSecret) == 0 {
		return fmt.Errorf("%w: access token secret is empty", ErrConfig)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("%w: access token ttl must be positive", ErrConfig)
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: refresh token ttl must be positive", ErrConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.RefreshTokenBytes <= 0 {
		c.RefreshTokenBytes = defaultRefreshTokenBytes
	}
	return c
}
