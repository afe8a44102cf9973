package session

import (
	"context"
	"time"

	"github.com/vietddude/tema/internal/core/domain"
)

// DefaultTTL is how long a session survives without refresh.
const DefaultTTL = 30 * 24 * time.Hour

// Store persists sessions and refresh-token grants in a Vault.
type Store struct {
	vault *Vault
	ttl   time.Duration
}

// NewStore creates a session store.
func NewStore(v *Vault, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{vault: v, ttl: ttl}
}

func sessionKey(uuid string) string { return "session:" + uuid }
func refreshKey(tokenID string) string { return "refresh:" + tokenID }

// Save stores s keyed by beneficiary UUID.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	return s.vault.Put(ctx, sessionKey(sess.BeneficiaryUUID), sess, s.ttl)
}

// Load returns the session of beneficiary uuid, or nil when absent.
func (s *Store) Load(ctx context.Context, uuid string) (*domain.Session, error) {
	var sess domain.Session
	ok, err := s.vault.Get(ctx, sessionKey(uuid), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the session of beneficiary uuid.
func (s *Store) Delete(ctx context.Context, uuid string) error {
	return s.vault.Delete(ctx, sessionKey(uuid))
}

// GrantRefresh records that refresh token tokenID belongs to beneficiary uuid.
func (s *Store) GrantRefresh(ctx context.Context, tokenID, uuid string, ttl time.Duration) error {
	return s.vault.Put(ctx, refreshKey(tokenID), uuid, ttl)
}

// ConsumeRefresh returns the owner of tokenID and revokes it. Empty means unknown or used.
func (s *Store) ConsumeRefresh(ctx context.Context, tokenID string) (string, error) {
	var uuid string
	ok, err := s.vault.Get(ctx, refreshKey(tokenID), &uuid)
	if err != nil || !ok {
		return "", err
	}
	if err := s.vault.Delete(ctx, refreshKey(tokenID)); err != nil {
		return "", err
	}
	return uuid, nil
}

// RevokeRefresh deletes a refresh grant.
func (s *Store) RevokeRefresh(ctx context.Context, tokenID string) error {
	return s.vault.Delete(ctx, refreshKey(tokenID))
}
