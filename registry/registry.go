// Package registry keeps a persistent record of filter construction runs,
// so the measured quality of different configurations over the same dataset
// can be compared later.
//
// Records are stored in a bolt database inside the registry directory. The
// directory is locked for exclusive access while the registry is open.
//
// It only works on Unix.
package registry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	jsoniterator "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Run is one recorded filter construction: the configuration, the final
// counters, the headline statistics and the harness measurements.
type Run struct {
	Dataset   string    `json:"dataset"`
	StartedAt time.Time `json:"started_at"`

	BitMapping int `json:"bit_mapping"`
	HashFamily int `json:"hash_family"`
	HashNumber int `json:"hash_number"`
	AreaNumber int `json:"area_number"`

	Members    int `json:"members"`
	Collisions int `json:"collisions"`

	Sparsity   float64 `json:"sparsity"`
	Fpp        float64 `json:"fpp"`
	APrioriFpp float64 `json:"a_priori_fpp"`
	Safeness   float64 `json:"safeness"`

	ExchangeRate      float64 `json:"exchange_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

type Registry struct {
	db     *bolt.DB
	lockFH *os.File
}

// Open opens (and creates, if necessary) a registry rooted at path.
func Open(path string) (reg *Registry, err error) {
	err = os.MkdirAll(path, 0750)
	if err != nil {
		return nil, errors.Wrapf(err, "creating registry path %s", path)
	}

	fh, err := os.OpenFile(filepath.Join(path, "lock"), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening lock file in %s", path)
	}
	defer func() {
		if err != nil {
			fh.Close()
		}
	}()

	err = unix.Flock(int(fh.Fd()), unix.LOCK_EX)
	if err != nil {
		return nil, errors.Wrapf(err, "locking registry %s", path)
	}

	db, err := bolt.Open(filepath.Join(path, "runs.db"), 0600, &bolt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening registry database in %s", path)
	}

	return &Registry{db: db, lockFH: fh}, nil
}

// Close closes the database and releases the registry lock.
func (r *Registry) Close() error {
	err := r.db.Close()
	r.lockFH.Close()

	return errors.Wrap(err, "closing registry database")
}

// Record appends run to the bucket named after its dataset, keyed by start
// time.
func (r *Registry) Record(run Run) error {
	buf, err := jsoniterator.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "encoding run")
	}

	key := []byte(run.StartedAt.UTC().Format(time.RFC3339Nano))

	return r.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(run.Dataset))
		if err != nil {
			return errors.Wrapf(err, "creating bucket %q", run.Dataset)
		}

		return errors.Wrap(b.Put(key, buf), "storing run")
	})
}

// Runs returns all recorded runs for a dataset, oldest first.
func (r *Registry) Runs(dataset string) ([]Run, error) {
	var runs []Run

	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(dataset))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var run Run

			err := jsoniterator.Unmarshal(v, &run)
			if err != nil {
				return errors.Wrapf(err, "decoding run %s", k)
			}

			runs = append(runs, run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}
