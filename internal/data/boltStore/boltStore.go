// Package boltStore persists document snapshots to a single bbolt file between restarts.
package boltStore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/QuizRAG/internal/rag/chunkStore"
	"go.etcd.io/bbolt"
)

var bucketSnapshots = []byte("documents")

type SnapshotStore struct {
	db *bbolt.DB
}

func Open(path string) (*SnapshotStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SnapshotStore{db: db}, nil
}

// Save replaces the stored snapshot set. Keys are zero-padded positions so Load keeps the order.
func (s *SnapshotStore) Save(snaps []chunkStore.DocumentSnapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketSnapshots); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketSnapshots)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			data, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			if err = b.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SnapshotStore) Load() ([]chunkStore.DocumentSnapshot, error) {
	var out []chunkStore.DocumentSnapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap chunkStore.DocumentSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return fmt.Errorf("snapshot %s: %w", k, err)
			}
			out = append(out, snap)
			return nil
		})
	})
	return out, err
}

func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
