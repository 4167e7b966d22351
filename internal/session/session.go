// Package session keeps the signed-in state of each visitor. A session is
// three values stored together under the keys token, userRole and userData;
// they are written and cleared as one unit.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/lube-storefront/internal/model"
)

// Storage keys.
const (
	KeyToken    = "token"
	KeyUserRole = "userRole"
	KeyUserData = "userData"
)

// Session is the decoded form of the three stored values.
type Session struct {
	Token   string
	Role    string
	Profile model.Profile
}

// IsAdmin reports whether the session belongs to an administrator.
func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

var (
	ErrIncomplete   = errors.New("session: missing token, role or profile")
	ErrUnknownRole  = errors.New("session: unknown role")
	ErrTokenExpired = errors.New("session: token expired")
	ErrBadToken     = errors.New("session: token cannot be decoded")
)

// Fields encodes s into its three storage values.
func (s Session) Fields() (map[string]string, error) {
	data, err := json.Marshal(s.Profile)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		KeyToken:    s.Token,
		KeyUserRole: s.Role,
		KeyUserData: string(data),
	}, nil
}

// FromFields decodes the three storage values. Any missing value makes the
// whole session invalid.
func FromFields(f map[string]string) (Session, error) {
	tok, role, data := f[KeyToken], f[KeyUserRole], f[KeyUserData]
	if tok == "" || role == "" || data == "" {
		return Session{}, ErrIncomplete
	}
	if !model.IsRole(role) {
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	var p model.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Session{}, fmt.Errorf("decode userData: %w", err)
	}
	return Session{Token: tok, Role: role, Profile: p}, nil
}

// TokenExpiry reads the exp claim without verifying the signature; the
// remote API is the only party that can verify it. ok is false when the
// token carries no exp claim.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	nd, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if nd == nil {
		return time.Time{}, false, nil
	}
	return nd.Time, true, nil
}

// Check validates the token of s at now.
func (s Session) Check(now time.Time) error {
	exp, ok, err := TokenExpiry(s.Token)
	if err != nil {
		return err
	}
	if ok && !now.Before(exp) {
		return ErrTokenExpired
	}
	return nil
}
