package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskroom/models"
)

// Claims is the access-token payload: subject is the principal id, ID (jti)
// identifies the issuance for pairing with a refresh-chain entry.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// PrincipalID parses the subject claim back into a principal id.
func (c *Claims) PrincipalID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// Signer issues and verifies HS256 access tokens. It is stateless; verified
// tokens are never looked up in storage.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	return &Signer{secret: secret, ttl: ttl}
}

// Issue signs a fresh access token for the user. The returned tokenID is the
// jti recorded on the paired refresh-chain entry.
func (s *Signer) Issue(user *models.User, now time.Time) (token string, tokenID string, err error) {
	tokenID = uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email:    user.Email,
		Role:     user.Role.Name,
		FullName: user.FullName,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return token, tokenID, nil
}

// Verify checks signature and expiry and returns the claims.
func (s *Signer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, s.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode checks the signature only, ignoring expiry. Refresh requests carry
// an access token that is typically already expired; its signature and
// identity still have to check out against the chain entry.
func (s *Signer) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(raw, claims, s.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	return s.secret, nil
}
