package session

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskroom/models"
)

// GormLedger implements Ledger on a relational store through gorm.
type GormLedger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Create(ctx context.Context, e *models.RefreshToken) error {
	return l.db.WithContext(ctx).Create(e).Error
}

func (l *GormLedger) ByTokenHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var e models.RefreshToken
	err := l.db.WithContext(ctx).Where("token_hash = ?", hash).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (l *GormLedger) ByPrincipalAndHash(ctx context.Context, principalID uint, hash string) (*models.RefreshToken, error) {
	var e models.RefreshToken
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", principalID, hash).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (l *GormLedger) Invalidate(ctx context.Context, id uint, reason string) error {
	return l.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"valid": false, "invalidated_reason": reason}).Error
}

func (l *GormLedger) InvalidateChain(ctx context.Context, principalID uint, chainID, reason string) error {
	return l.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND chain_id = ? AND valid", principalID, chainID).
		Updates(map[string]interface{}{"valid": false, "invalidated_reason": reason}).Error
}

func (l *GormLedger) ActiveByPrincipal(ctx context.Context, principalID uint) ([]models.RefreshToken, error) {
	var entries []models.RefreshToken
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND valid AND expires_at > NOW()", principalID).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *GormLedger) SetFCMToken(ctx context.Context, id uint, fcmToken string) error {
	return l.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Update("fcm_token", fcmToken).Error
}

// Rotate runs fn inside a transaction holding a FOR UPDATE lock on the entry
// row, so concurrent refreshes presenting the same token serialize: the first
// one rotates, the rest observe the invalidated entry. Terminal token errors
// from fn commit the invalidations fn recorded; anything else rolls back.
func (l *GormLedger) Rotate(ctx context.Context, hash string, fn func(tx Ledger, e *models.RefreshToken) error) error {
	var tokenErr error
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_hash = ?", hash).
			First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tokenErr = ErrInvalidToken
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(&GormLedger{db: tx}, &e); err != nil {
			if isTerminalTokenErr(err) {
				tokenErr = err
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	return tokenErr
}

func isTerminalTokenErr(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenReused) ||
		errors.Is(err, ErrTokenExpired)
}

// GormPrincipals implements PrincipalStore through gorm.
type GormPrincipals struct {
	db *gorm.DB
}

func NewPrincipals(db *gorm.DB) *GormPrincipals {
	return &GormPrincipals{db: db}
}

func (p *GormPrincipals) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := p.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *GormPrincipals) ByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := p.db.WithContext(ctx).Preload("Role").First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *GormPrincipals) Create(ctx context.Context, u *models.User) error {
	if err := p.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueConstraintError(err) { // race after the optimistic pre-check
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (p *GormPrincipals) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := p.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role, models.Role{Name: name}).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
