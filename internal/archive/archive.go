// Package archive persists finished benchmark reports in an embedded
// badger database, so runs on the same host can be compared over time.
package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"ecs-bench/internal/bench"
)

// ErrNotFound is returned when no report exists under the requested id.
var ErrNotFound = errors.New("report not found")

const keyPrefix = "report:"

// Config controls where and how the archive database is opened.
type Config struct {
	DataPath string
	InMemory bool
}

// Entry is a summary line for one archived report.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Results   int    `json:"results"`
}

// Store is a badger-backed report archive. Reports are keyed by a
// nanosecond-resolution id so lexicographic key order is save order.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

func NewStore(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.DataPath)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save archives a report and returns its id.
func (s *Store) Save(report *bench.Report) (string, error) {
	data, err := report.ToJSON()
	if err != nil {
		return "", err
	}

	id := s.now().UTC().Format("20060102T150405.000000000")
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+id), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive report %s: %w", id, err)
	}
	return id, nil
}

// Get loads one archived report by id.
func (s *Store) Get(id string) (*bench.Report, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	return bench.ParseReport(data)
}

// Latest returns the most recently saved report and its id.
func (s *Store) Latest() (string, *bench.Report, error) {
	var id string
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks past the end of the prefix range.
		it.Seek(append([]byte(keyPrefix), 0xff))
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return badger.ErrKeyNotFound
		}
		item := it.Item()
		id = string(item.Key()[len(keyPrefix):])
		var err error
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil, fmt.Errorf("%w: archive is empty", ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load latest report: %w", err)
	}

	report, err := bench.ParseReport(data)
	if err != nil {
		return "", nil, err
	}
	return id, report, nil
}

// List returns a summary of every archived report, oldest first.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(keyPrefix)); it.ValidForPrefix([]byte(keyPrefix)); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(keyPrefix):])
			err := item.Value(func(val []byte) error {
				report, err := bench.ParseReport(val)
				if err != nil {
					return fmt.Errorf("corrupt archived report %s: %w", id, err)
				}
				entries = append(entries, Entry{
					ID:        id,
					Timestamp: report.Timestamp,
					Results:   len(report.Results),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	return entries, nil
}

// Delete removes one archived report. Deleting an absent id is an error.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + id)
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
