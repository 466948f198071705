// Package badger persists confirmed NFSv4.1 client records in BadgerDB so
// that a restarted server knows which clients may reclaim state during the
// grace period.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
)

// Primary key: nfs4:client:{owner} -> JSON(state.ClientRecord)
const prefixClient = "nfs4:client:"

// Config configures the store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; records do not survive a restart.
	InMemory bool
}

// ClientStore implements state.ClientStore on BadgerDB.
//
// Storage model: one key per client owner. The owner string is the stable
// identity across restarts; server-assigned client ids change every boot.
//
// Thread Safety: all operations run in BadgerDB transactions.
type ClientStore struct {
	db *badgerdb.DB
}

var _ state.ClientStore = (*ClientStore)(nil)

// Open opens or creates the database described by cfg.
func Open(cfg Config) (*ClientStore, error) {
	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger store: path is required")
		}
		opts = badgerdb.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	logger.Debug("Client store opened", "path", cfg.Path, "in_memory", cfg.InMemory)
	return &ClientStore{db: db}, nil
}

// Close closes the database.
func (s *ClientStore) Close() error {
	return s.db.Close()
}

// PutClient stores or replaces the record for rec.Owner.
func (s *ClientStore) PutClient(ctx context.Context, rec *state.ClientRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Owner == "" {
		return errors.New("client record without owner")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal client record: %w", err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(clientKey(rec.Owner), data)
	})
}

// GetClient returns the record for owner, or nil when there is none.
func (s *ClientStore) GetClient(ctx context.Context, owner string) (*state.ClientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *state.ClientRecord
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(clientKey(owner))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &state.ClientRecord{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteClient removes the record for owner. Missing records are not an error.
func (s *ClientStore) DeleteClient(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(clientKey(owner))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// ListClients returns every stored record.
func (s *ClientStore) ListClients(ctx context.Context) ([]*state.ClientRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []*state.ClientRecord
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefixClient)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec := &state.ClientRecord{}
				if err := json.Unmarshal(val, rec); err != nil {
					return err
				}
				result = append(result, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Healthcheck verifies the database can serve a read transaction.
func (s *ClientStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func clientKey(owner string) []byte {
	return []byte(prefixClient + owner)
}
