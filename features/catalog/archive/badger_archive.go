package archive

import (
	"context"
	"encoding/json"
	"errors"
	"servicecheck/internal/config"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrArchiveNotInitialized = errors.New("catalog archive not initialized")
	ErrSnapshotNotFound      = errors.New("catalog snapshot not found")
	ErrOpenArchive           = errors.New("failed to open catalog archive")
)

const keyPrefix = "catalog/"

// Snapshot is the raw body of the last successful catalog response of a provider.
type Snapshot struct {
	ProviderID   int64     `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	RunID        string    `json:"run_id,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	Body         []byte    `json:"body"`
}

// BadgerArchive keeps one snapshot per provider in a badger store.
type BadgerArchive struct {
	db  *badger.DB
	ttl time.Duration
	mu  sync.RWMutex
}

// Open creates the archive described by settings.
func Open(settings *config.ArchiveConfig) (*BadgerArchive, error) {
	opts := badger.DefaultOptions(settings.Path)
	if settings.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open Badger database")
		return nil, errors.Join(ErrOpenArchive, err)
	}

	log.Info().
		Bool("in_memory", settings.InMemory).
		Dur("ttl", settings.TTL).
		Msg("Catalog archive initialized")

	return &BadgerArchive{db: bdb, ttl: settings.TTL}, nil
}

func key(providerID int64) []byte {
	return []byte(keyPrefix + strconv.FormatInt(providerID, 10))
}

// Put replaces the provider's snapshot.
func (a *BadgerArchive) Put(ctx context.Context, snapshot Snapshot) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return ErrArchiveNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(snapshot.ProviderID), value)
		if a.ttl > 0 {
			entry = entry.WithTTL(a.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get returns the provider's snapshot or ErrSnapshotNotFound.
func (a *BadgerArchive) Get(ctx context.Context, providerID int64) (*Snapshot, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, ErrArchiveNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{}
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(providerID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSnapshotNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, snapshot)
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Close releases badger resources.
func (a *BadgerArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
