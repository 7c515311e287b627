// Package idmap provides a bbolt-backed checkpoint store for a dynamic
// index's internal<->external ID map. It is the "frequent checkpoint"
// half of the save model: cheap, transactional snapshots taken between
// the comparatively expensive atomic-rename TOML/binary saves the
// dataset and vamana packages perform (spec §9 Checkpoint-vs-atomic_save
// resolution -- treated as an intentional double-write, not a redundancy
// to collapse).
package idmap

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("external_to_internal")

// Store is a durable checkpoint of the external->internal ID map, so a
// crash between atomic TOML saves loses at most the checkpoints taken
// since the last one, not the whole map.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens a checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint db %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

// Checkpoint overwrites the stored map with the given external->internal
// snapshot in a single bbolt transaction.
func (s *Store) Checkpoint(externalToInternal map[uint64]uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		// Clear by recreating the bucket: simpler and cheaper than
		// enumerating and deleting each key for a full-snapshot write.
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		fresh, err := tx.CreateBucket(bucketName)
		if err != nil {
			return err
		}
		for external, internal := range externalToInternal {
			if err := fresh.Put(encodeID(external), encodeID(internal)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads back the most recently checkpointed map.
func (s *Store) Load() (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			external := binary.BigEndian.Uint64(k)
			internal := binary.BigEndian.Uint64(v)
			out[external] = internal
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "read checkpoint")
	}
	return out, nil
}
