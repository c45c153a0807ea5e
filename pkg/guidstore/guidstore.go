// Package guidstore persists installer component GUIDs in a bbolt
// database, so a component keeps its GUID from one build to the next.
// A key is given a random GUID the first time it is seen.
package guidstore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

// NoBucketError is returned when the namespace bucket has gone missing
// from an open store.
type NoBucketError struct {
	bucketName string
}

func (e NoBucketError) Error() string {
	return fmt.Sprintf("%s bucket does not exist", e.bucketName)
}

type Store struct {
	db         *bbolt.DB
	bucketName string
}

// Open opens or creates the database at path, using the bucket named
// namespace. Different namespaces hand out independent GUIDs for the
// same key, eg: one per product architecture.
func Open(path string, namespace string) (*Store, error) {
	if namespace == "" {
		return nil, errors.New("guidstore namespace is empty")
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening guid database %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(namespace)); err != nil {
			return errors.Wrap(err, "creating bucket")
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucketName: namespace}, nil
}

// ComponentGuid returns the GUID recorded for key, recording a new
// random one if there is none.
func (s *Store) ComponentGuid(key string) (string, error) {
	var guid string

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucketName))
		if b == nil {
			return NoBucketError{bucketName: s.bucketName}
		}

		if v := b.Get([]byte(key)); v != nil {
			guid = string(v)
			return nil
		}

		guid = strings.ToUpper(uuid.NewString())
		if err := b.Put([]byte(key), []byte(guid)); err != nil {
			return errors.Wrapf(err, "setting %s key", key)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return guid, nil
}

// Keys lists the recorded keys, sorted.
func (s *Store) Keys() ([]string, error) {
	var keys []string

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucketName))
		if b == nil {
			return NoBucketError{bucketName: s.bucketName}
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
