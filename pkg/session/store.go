package session

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"taskroom/models"
)

// Reasons recorded when a refresh-chain entry leaves the active state. The
// states are functionally identical for authorization (the entry never
// authorizes a refresh again) but are kept apart for audit logging.
const (
	ReasonRotated      = "rotated"
	ReasonExpired      = "expired"
	ReasonLogout       = "logout"
	ReasonReuse        = "reuse"
	ReasonPairMismatch = "pair_mismatch"
)

// Ledger is the persisted table of refresh-chain entries. Lookups are always
// by token hash; raw token values are hashed before they reach the store.
// Methods returning an entry return (nil, nil) when no row matches.
type Ledger interface {
	Create(ctx context.Context, e *models.RefreshToken) error
	ByTokenHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	ByPrincipalAndHash(ctx context.Context, principalID uint, hash string) (*models.RefreshToken, error)
	Invalidate(ctx context.Context, id uint, reason string) error
	InvalidateChain(ctx context.Context, principalID uint, chainID, reason string) error
	ActiveByPrincipal(ctx context.Context, principalID uint) ([]models.RefreshToken, error)
	SetFCMToken(ctx context.Context, id uint, fcmToken string) error

	// Rotate looks up the entry with the given hash, locks it against
	// concurrent rotations of the same token, and runs fn with a ledger view
	// whose writes belong to the same atomic unit. When fn returns one of the
	// terminal token errors (ErrInvalidToken, ErrTokenReused, ErrTokenExpired)
	// its punitive writes are still committed before the error is surfaced;
	// any other error rolls everything back. A hash with no entry yields
	// ErrInvalidToken without invoking fn.
	Rotate(ctx context.Context, hash string, fn func(tx Ledger, e *models.RefreshToken) error) error
}

// PrincipalStore is the persisted user table as the session subsystem sees
// it. Lookup methods return (nil, nil) when no row matches.
type PrincipalStore interface {
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id uint) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	EnsureRole(ctx context.Context, name string) (*models.Role, error)
}

// PasswordHasher is the opaque one-way hash comparison service used for
// passwords. The session core never inspects hashes beyond this contract.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Compare(hash []byte, password string) error
}

// BcryptHasher is the default PasswordHasher.
type BcryptHasher struct {
	// Cost defaults to bcrypt.DefaultCost when zero.
	Cost int
}

func (h BcryptHasher) Hash(password string) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func (h BcryptHasher) Compare(hash []byte, password string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}
