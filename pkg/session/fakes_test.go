package session

import (
	"context"
	"sync"
	"time"

	"taskroom/models"
)

// memLedger is an in-memory Ledger for unit tests. Rotate holds the lock for
// the whole callback, which models the per-token row lock: concurrent
// rotations of one token serialize.
type memLedger struct {
	mu     sync.Mutex
	nextID uint
	byHash map[string]*models.RefreshToken
}

func newMemLedger() *memLedger {
	return &memLedger{byHash: map[string]*models.RefreshToken{}}
}

func (l *memLedger) Create(ctx context.Context, e *models.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.create(e)
}

func (l *memLedger) create(e *models.RefreshToken) error {
	l.nextID++
	e.ID = l.nextID
	e.CreatedAt = time.Now()
	cp := *e
	l.byHash[e.TokenHash] = &cp
	return nil
}

func (l *memLedger) ByTokenHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byTokenHash(hash), nil
}

func (l *memLedger) byTokenHash(hash string) *models.RefreshToken {
	e, ok := l.byHash[hash]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

func (l *memLedger) ByPrincipalAndHash(ctx context.Context, principalID uint, hash string) (*models.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byHash[hash]
	if !ok || e.UserID != principalID {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (l *memLedger) Invalidate(ctx context.Context, id uint, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invalidate(id, reason)
}

func (l *memLedger) invalidate(id uint, reason string) error {
	for _, e := range l.byHash {
		if e.ID == id {
			e.Valid = false
			e.InvalidatedReason = reason
		}
	}
	return nil
}

func (l *memLedger) InvalidateChain(ctx context.Context, principalID uint, chainID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invalidateChain(principalID, chainID, reason)
}

func (l *memLedger) invalidateChain(principalID uint, chainID, reason string) error {
	for _, e := range l.byHash {
		if e.UserID == principalID && e.ChainID == chainID && e.Valid {
			e.Valid = false
			e.InvalidatedReason = reason
		}
	}
	return nil
}

func (l *memLedger) ActiveByPrincipal(ctx context.Context, principalID uint) ([]models.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.RefreshToken
	now := time.Now()
	for _, e := range l.byHash {
		if e.UserID == principalID && e.Valid && e.ExpiresAt.After(now) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (l *memLedger) SetFCMToken(ctx context.Context, id uint, fcmToken string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.byHash {
		if e.ID == id {
			e.FCMToken = fcmToken
		}
	}
	return nil
}

func (l *memLedger) Rotate(ctx context.Context, hash string, fn func(tx Ledger, e *models.RefreshToken) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.byTokenHash(hash)
	if e == nil {
		return ErrInvalidToken
	}
	return fn(memLedgerTx{l}, e)
}

// memLedgerTx is the unlocked view handed to the Rotate callback.
type memLedgerTx struct {
	l *memLedger
}

func (t memLedgerTx) Create(ctx context.Context, e *models.RefreshToken) error {
	return t.l.create(e)
}

func (t memLedgerTx) ByTokenHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	return t.l.byTokenHash(hash), nil
}

func (t memLedgerTx) ByPrincipalAndHash(ctx context.Context, principalID uint, hash string) (*models.RefreshToken, error) {
	e := t.l.byTokenHash(hash)
	if e == nil || e.UserID != principalID {
		return nil, nil
	}
	return e, nil
}

func (t memLedgerTx) Invalidate(ctx context.Context, id uint, reason string) error {
	return t.l.invalidate(id, reason)
}

func (t memLedgerTx) InvalidateChain(ctx context.Context, principalID uint, chainID, reason string) error {
	return t.l.invalidateChain(principalID, chainID, reason)
}

func (t memLedgerTx) ActiveByPrincipal(ctx context.Context, principalID uint) ([]models.RefreshToken, error) {
	return nil, nil
}

func (t memLedgerTx) SetFCMToken(ctx context.Context, id uint, fcmToken string) error {
	return nil
}

func (t memLedgerTx) Rotate(ctx context.Context, hash string, fn func(tx Ledger, e *models.RefreshToken) error) error {
	return nil
}

// setExpiry rewinds or advances an entry's expiry for tests.
func (l *memLedger) setExpiry(hash string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.byHash[hash]; ok {
		e.ExpiresAt = at
	}
}

func (l *memLedger) entry(hash string) *models.RefreshToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byTokenHash(hash)
}

// memPrincipals is an in-memory PrincipalStore for unit tests.
type memPrincipals struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	roles  map[string]*models.Role
}

func newMemPrincipals() *memPrincipals {
	return &memPrincipals{users: map[uint]*models.User{}, roles: map[string]*models.Role{}}
}

func (p *memPrincipals) ByEmail(ctx context.Context, email string) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (p *memPrincipals) ByID(ctx context.Context, id uint) (*models.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (p *memPrincipals) Create(ctx context.Context, u *models.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	p.nextID++
	u.ID = p.nextID
	cp := *u
	p.users[u.ID] = &cp
	return nil
}

func (p *memPrincipals) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.roles[name]; ok {
		cp := *r
		return &cp, nil
	}
	r := &models.Role{ID: uint(len(p.roles) + 1), Name: name}
	p.roles[name] = r
	cp := *r
	return &cp, nil
}
