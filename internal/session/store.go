package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// fixed storage keys
const (
	keyToken = "token"
	keyRole  = "role"
)

type Credentials struct {
	Token string
	Role  Role
}

// Store is the token store for one scope. Construct one per client
// context and pass it to whatever needs it; there is no global lookup.
type Store struct {
	kv     KV
	scope  string
	sealer *Sealer
}

type Option func(*Store)

// WithSealer encrypts the token at rest. A nil sealer is ignored.
func WithSealer(s *Sealer) Option {
	return func(st *Store) {
		if s != nil {
			st.sealer = s
		}
	}
}

func New(kv KV, scope string, opts ...Option) *Store {
	if scope == "" {
		scope = "default"
	}
	s := &Store{kv: kv, scope: scope}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Scope() string { return s.scope }

// Get returns the stored credentials, or ok=false when no token is held.
// No expiry check happens here; the backend signals expiry with 401.
func (s *Store) Get(ctx context.Context) (Credentials, bool, error) {
	raw, ok, err := s.kv.Load(ctx, s.scope, keyToken)
	if err != nil || !ok || raw == "" {
		return Credentials{}, false, err
	}
	tok := raw
	if s.sealer != nil {
		if tok, err = s.sealer.Open(raw); err != nil {
			return Credentials{}, false, err
		}
	}
	role, _, err := s.kv.Load(ctx, s.scope, keyRole)
	if err != nil {
		return Credentials{}, false, err
	}
	cred := Credentials{Token: tok, Role: Role(role)}
	if cred.Role == "" {
		cred.Role = RoleFromToken(tok)
	}
	return cred, true, nil
}

// Token is Get without the role.
func (s *Store) Token(ctx context.Context) (string, bool, error) {
	c, ok, err := s.Get(ctx)
	return c.Token, ok, err
}

func (s *Store) Set(ctx context.Context, token string, role Role) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("session: empty token")
	}
	switch role {
	case RoleStudent, RoleAdmin:
	case "":
		role = RoleFromToken(token)
	default:
		return fmt.Errorf("session: unknown role %q", role)
	}
	val := token
	if s.sealer != nil {
		var err error
		if val, err = s.sealer.Seal(token); err != nil {
			return err
		}
	}
	if err := s.kv.Save(ctx, s.scope, keyToken, val); err != nil {
		return err
	}
	return s.kv.Save(ctx, s.scope, keyRole, string(role))
}

func (s *Store) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, s.scope, keyToken, keyRole)
}
