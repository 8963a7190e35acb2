// Package session keeps login sessions in a bbolt file next to the ledger.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const bucketSessions = "sessions"

// DefaultTTL is used when a Store is opened with a zero TTL.
const DefaultTTL = 12 * time.Hour

// Session is an authenticated login.
type Session struct {
	Token     string     `json:"token"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions keyed by token.
type Store struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens (creating if needed) the session database at path.
func Open(path string, ttl time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSessions))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating session bucket: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create starts a session for u.
func (s *Store) Create(u model.User) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, fmt.Errorf("encoding session: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Put([]byte(sess.Token), data)
	})
	if err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Validate returns the session for token. Unknown and expired tokens report
// false; expired ones are removed.
func (s *Store) Validate(token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}

	var sess Session
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketSessions)).Get([]byte(token))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &sess)
	})
	if err != nil {
		return Session{}, false, fmt.Errorf("reading session: %w", err)
	}
	if !found {
		return Session{}, false, nil
	}

	if sess.Expired(s.now()) {
		if err := s.Revoke(token); err != nil {
			return Session{}, false, err
		}
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Revoke ends a session. Unknown tokens are ignored.
func (s *Store) Revoke(token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).Delete([]byte(token))
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// RevokeUser ends every session of a user and returns how many there were.
func (s *Store) RevokeUser(userID int64) (int, error) {
	return s.deleteWhere(func(sess Session) bool { return sess.UserID == userID })
}

// Purge deletes expired sessions and returns how many were removed.
func (s *Store) Purge() (int, error) {
	now := s.now()
	return s.deleteWhere(func(sess Session) bool { return sess.Expired(now) })
}

var errCorrupt = errors.New("corrupt session record")

func (s *Store) deleteWhere(match func(Session) bool) (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketSessions))
		var doomed [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var sess Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("%w %q: %v", errCorrupt, k, err)
			}
			if match(sess) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(doomed)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	return n, nil
}
