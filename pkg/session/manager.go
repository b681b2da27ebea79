// Package session implements credential issuance, refresh-token rotation
// with reuse detection, per-session logout, and request-time validation.
//
// Every login opens a refresh-token chain. A refresh consumes the chain's
// current entry and appends a new one; presenting a consumed entry again is
// treated as a theft signal and kills the whole chain. All rotation steps for
// one token value execute as a single atomic unit against the ledger.
package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskroom/models"
)

// TokenPair is the credential pair handed to clients: a short-lived signed
// access token and a long-lived opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Manager orchestrates registration, login, logout, refresh, and validation
// against the principal store and the refresh-chain ledger.
type Manager struct {
	cfg        Config
	signer     *Signer
	ledger     Ledger
	principals PrincipalStore
	hasher     PasswordHasher
	log        *zap.Logger
}

// NewManager validates cfg and wires the manager. A nil hasher selects
// bcrypt; a nil logger disables audit logging.
func NewManager(cfg Config, ledger Ledger, principals PrincipalStore, hasher PasswordHasher, log *zap.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		signer:     NewSigner(cfg.AccessTokenSecret, cfg.AccessTokenTTL),
		ledger:     ledger,
		principals: principals,
		hasher:     hasher,
		log:        log,
	}, nil
}

// Register creates a principal with the default USER role. Returns
// ErrEmailTaken when a non-deleted principal with that email exists.
func (m *Manager) Register(ctx context.Context, email, password, fullName string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password too short (min 6)")
	}
	existing, err := m.principals.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}
	role, err := m.principals.EnsureRole(ctx, models.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to ensure user role: %w", err)
	}
	rid := role.ID
	user := models.User{Email: email, HashedPassword: hash, FullName: fullName, RoleID: &rid, Role: *role}
	return m.principals.Create(ctx, &user)
}

// Login verifies the credentials and opens a fresh refresh-token chain.
// Unknown email and wrong password produce the same ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, email, password string) (TokenPair, error) {
	user, err := m.principals.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return TokenPair{}, err
	}
	if user == nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err := m.hasher.Compare(user.HashedPassword, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return m.issueChain(ctx, user)
}

// issueChain mints a token pair on a brand-new chain and records the entry.
func (m *Manager) issueChain(ctx context.Context, user *models.User) (TokenPair, error) {
	now := time.Now()
	access, tokenID, err := m.signer.Issue(user, now)
	if err != nil {
		return TokenPair{}, err
	}
	raw, hash, err := newRefreshToken(m.cfg.RefreshTokenBytes)
	if err != nil {
		return TokenPair{}, err
	}
	entry := models.RefreshToken{
		UserID:        user.ID,
		ChainID:       uuid.NewString(),
		TokenHash:     hash,
		AccessTokenID: tokenID,
		Valid:         true,
		ExpiresAt:     now.Add(m.cfg.RefreshTokenTTL),
	}
	if err := m.ledger.Create(ctx, &entry); err != nil {
		return TokenPair{}, err
	}
	m.log.Info("session chain opened",
		zap.Uint("principal_id", user.ID),
		zap.String("chain_id", entry.ChainID),
		zap.Uint("entry_id", entry.ID))
	return TokenPair{AccessToken: access, RefreshToken: raw}, nil
}

// Refresh rotates a refresh token, returning a new pair. The lookup, the
// pairing cross-check, the validity and expiry checks, the invalidation of
// the consumed entry, and the creation of its successor are one atomic unit
// per token value; concurrent refreshes of the same token serialize and at
// most one succeeds.
func (m *Manager) Refresh(ctx context.Context, accessToken, refreshToken string) (TokenPair, error) {
	hash := hashRefreshToken(strings.TrimSpace(refreshToken))
	var pair TokenPair
	err := m.ledger.Rotate(ctx, hash, func(tx Ledger, e *models.RefreshToken) error {
		now := time.Now()

		// Access and refresh tokens are issued in pairs; a correctly signed
		// access token with the wrong subject or jti means a tampered or
		// replayed pairing, and the entry is burned.
		claims, err := m.signer.Decode(accessToken)
		if err != nil || claims.Subject != formatID(e.UserID) || claims.ID != e.AccessTokenID {
			if err := tx.Invalidate(ctx, e.ID, ReasonPairMismatch); err != nil {
				return err
			}
			m.audit("refresh pair mismatch", e)
			return ErrInvalidToken
		}

		// An entry that already rotated away is a reuse signal: either theft
		// or a client retrying after losing a race. Kill the whole chain.
		if !e.Valid {
			if err := tx.InvalidateChain(ctx, e.UserID, e.ChainID, ReasonReuse); err != nil {
				return err
			}
			m.log.Warn("refresh token reuse detected, chain revoked",
				zap.Uint("principal_id", e.UserID),
				zap.String("chain_id", e.ChainID),
				zap.Uint("entry_id", e.ID))
			return ErrTokenReused
		}

		if now.After(e.ExpiresAt) {
			if err := tx.Invalidate(ctx, e.ID, ReasonExpired); err != nil {
				return err
			}
			m.audit("refresh token expired", e)
			return ErrTokenExpired
		}

		user, err := m.principals.ByID(ctx, e.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrInvalidToken
		}

		access, tokenID, err := m.signer.Issue(user, now)
		if err != nil {
			return err
		}
		raw, newHash, err := newRefreshToken(m.cfg.RefreshTokenBytes)
		if err != nil {
			return err
		}
		next := models.RefreshToken{
			UserID:        e.UserID,
			ChainID:       e.ChainID,
			TokenHash:     newHash,
			AccessTokenID: tokenID,
			Valid:         true,
			ExpiresAt:     now.Add(m.cfg.RefreshTokenTTL),
			FCMToken:      e.FCMToken,
		}
		if err := tx.Create(ctx, &next); err != nil {
			return err
		}
		if err := tx.Invalidate(ctx, e.ID, ReasonRotated); err != nil {
			return err
		}
		m.audit("refresh chain rotated", e)
		pair = TokenPair{AccessToken: access, RefreshToken: raw}
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Logout invalidates the presented session entry only; sessions on other
// devices stay valid. The access token must be the one paired with the
// refresh entry.
func (m *Manager) Logout(ctx context.Context, principalID uint, accessToken, refreshToken string) error {
	hash := hashRefreshToken(strings.TrimSpace(refreshToken))
	entry, err := m.ledger.ByPrincipalAndHash(ctx, principalID, hash)
	if err != nil {
		return err
	}
	if entry == nil || !entry.Valid {
		return ErrInvalidToken
	}
	claims, err := m.signer.Decode(accessToken)
	if err != nil || claims.ID != entry.AccessTokenID || claims.Subject != formatID(principalID) {
		return ErrInvalidToken
	}
	if err := m.ledger.Invalidate(ctx, entry.ID, ReasonLogout); err != nil {
		return err
	}
	m.audit("session logged out", entry)
	return nil
}

// ValidateAccessToken verifies the token purely by signature and expiry and
// resolves its subject. Any failure yields (nil, false), never an error; the
// request authenticator decides what "no principal" means for the route.
func (m *Manager) ValidateAccessToken(ctx context.Context, raw string) (*models.User, bool) {
	claims, err := m.signer.Verify(raw)
	if err != nil {
		return nil, false
	}
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, false
	}
	user, err := m.principals.ByID(ctx, id)
	if err != nil || user == nil {
		return nil, false
	}
	return user, true
}

// ValidateExistingSession resolves a principal from a live refresh token plus
// an access token that only has to be correctly signed, not unexpired; the
// token's email claim identifies the principal. This is the cookie client's
// silent session check. An expired entry is invalidated on sight.
func (m *Manager) ValidateExistingSession(ctx context.Context, accessToken, refreshToken string) (*models.User, bool) {
	claims, err := m.signer.Decode(accessToken)
	if err != nil {
		return nil, false
	}
	user, err := m.principals.ByEmail(ctx, claims.Email)
	if err != nil || user == nil {
		return nil, false
	}
	hash := hashRefreshToken(strings.TrimSpace(refreshToken))
	entry, err := m.ledger.ByPrincipalAndHash(ctx, user.ID, hash)
	if err != nil || entry == nil || !entry.Valid {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		if err := m.ledger.Invalidate(ctx, entry.ID, ReasonExpired); err == nil {
			m.audit("session expired", entry)
		}
		return nil, false
	}
	return user, true
}

// UpdateSessionFCMToken binds a push-delivery token to the session identified
// by the principal and refresh token. Expired sessions are rejected.
func (m *Manager) UpdateSessionFCMToken(ctx context.Context, principalID uint, refreshToken, fcmToken string) error {
	hash := hashRefreshToken(strings.TrimSpace(refreshToken))
	entry, err := m.ledger.ByPrincipalAndHash(ctx, principalID, hash)
	if err != nil {
		return err
	}
	if entry == nil || !entry.Valid {
		return ErrInvalidToken
	}
	if time.Now().After(entry.ExpiresAt) {
		return ErrTokenExpired
	}
	return m.ledger.SetFCMToken(ctx, entry.ID, fcmToken)
}

func (m *Manager) audit(msg string, e *models.RefreshToken) {
	m.log.Info(msg,
		zap.Uint("principal_id", e.UserID),
		zap.String("chain_id", e.ChainID),
		zap.Uint("entry_id", e.ID))
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
