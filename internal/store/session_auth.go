package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"examgen-server/internal/model"
)

// DefaultSessionTTL is the session lifetime used when the caller passes a
// non-positive TTL.
const DefaultSessionTTL = 24 * time.Hour

// CreateAuthSession mints an opaque session token for a user, valid for ttl.
// The expiry is returned so the transport layer can align cookie lifetimes
// with the stored session.
func (s *Store) CreateAuthSession(userID int64, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expires := now.Add(ttl)
	_, err = s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, expires,
	)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// GetAuthSession returns the session for a token, or nil when the token is
// unknown or past its expiry. Expired rows are pruned on access; bulk
// cleanup of stale rows happens via CleanupExpiredSessions at startup.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthSession removes a session token.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions removes all expired auth sessions.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
