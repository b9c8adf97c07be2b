package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-aurum/internal/obs"
)

// SnapshotStore mirrors session state to Redis so a crashed or reloaded
// cashier device recovers its in-progress sale. It is a recovery cache only,
// never a cross-device sharing mechanism.
type SnapshotStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s SnapshotStore) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "session:"
	}
	return prefix + id
}

func (s SnapshotStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 72 * time.Hour
	}
	return s.TTL
}

// Save persists the session snapshot.
func (s SnapshotStore) Save(ctx context.Context, session Session) error {
	if s.R == nil {
		return errors.New("snapshot store not configured")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	err = s.R.Set(ctx, s.key(session.ID), data, s.ttl()).Err()
	countSnapshot("save", err)
	return err
}

// Load returns the stored snapshot or nil when none exists.
func (s SnapshotStore) Load(ctx context.Context, id string) (*Session, error) {
	if s.R == nil {
		return nil, errors.New("snapshot store not configured")
	}
	data, err := s.R.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			countSnapshot("load", nil)
			return nil, nil
		}
		countSnapshot("load", err)
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		countSnapshot("load", err)
		return nil, err
	}
	countSnapshot("load", nil)
	return &session, nil
}

// Clear removes the snapshot after a committed or abandoned sale.
func (s SnapshotStore) Clear(ctx context.Context, id string) error {
	if s.R == nil {
		return errors.New("snapshot store not configured")
	}
	err := s.R.Del(ctx, s.key(id)).Err()
	countSnapshot("clear", err)
	return err
}

func countSnapshot(kind string, err error) {
	if obs.SessionSnapshotTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.SessionSnapshotTotal.WithLabelValues(kind, result).Inc()
}
