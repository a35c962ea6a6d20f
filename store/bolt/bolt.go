// Package bolt is a store.Store backed by a bbolt database file.
//
// Layout: a root bucket holds one nested bucket per conversation. Keys inside a
// conversation bucket are the big-endian NextSequence values, so cursor order is
// insertion order. Values are JSON encoded turns.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"time"

	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/store"
	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

var rootBucket = []byte("conversations")

var _ store.Store = (*Store)(nil)

type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, store.Wrap("open", "", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, store.Wrap("open", "", err)
	}
	return &Store{db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.db.Path() }

func key(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (s *Store) Append(ctx context.Context, conversationID string, t messages.Turn) (messages.Turn, error) {
	if err := store.CheckID("append", conversationID); err != nil {
		return messages.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return messages.Turn{}, store.Wrap("append", conversationID, err)
	}
	if err := t.Validate(); err != nil {
		return messages.Turn{}, store.Wrap("append", conversationID, err)
	}
	if t.Time().IsZero() {
		t.Timestamp = strfmt.DateTime(time.Now())
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(conversationID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		t.Seq = seq
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return b.Put(key(seq), data)
	})
	if err != nil {
		return messages.Turn{}, store.Wrap("append", conversationID, err)
	}
	return t, nil
}

func (s *Store) Tail(ctx context.Context, conversationID string, limit int) ([]messages.Turn, error) {
	if err := store.CheckID("tail", conversationID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("tail", conversationID, err)
	}

	var turns []messages.Turn
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket).Bucket([]byte(conversationID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(turns) >= limit {
				break
			}
			var t messages.Turn
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			turns = append(turns, t)
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap("tail", conversationID, err)
	}
	slices.Reverse(turns)
	return turns, nil
}

func (s *Store) List(ctx context.Context, conversationID string) ([]messages.Turn, error) {
	return s.Tail(ctx, conversationID, 0)
}

// Conversations returns the ids of all stored conversations in key order.
func (s *Store) Conversations(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).ForEachBucket(func(k []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, store.Wrap("conversations", "", err)
	}
	return ids, nil
}

func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if err := store.CheckID("clear", conversationID); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(rootBucket).DeleteBucket([]byte(conversationID))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	return store.Wrap("clear", conversationID, err)
}

func (s *Store) ClearAll(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(rootBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(rootBucket)
		return err
	})
	return store.Wrap("clear-all", "", err)
}

func (s *Store) Close() error {
	return store.Wrap("close", "", s.db.Close())
}
