package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	pyreerrors "github.com/pyrestack/pyre/pkg/errors"
	"github.com/pyrestack/pyre/pkg/types"
)

const indexKeyPrefix = "fn:"

// Index is the badger-backed artifact metadata index. File contents
// live on the filesystem; the index records what exists and carries
// the per-function dependency manifest.
type Index struct {
	db       *badger.DB
	readOnly bool
}

// OpenIndex opens (or creates) the index database under dataDir.
//
// Badger takes an exclusive directory lock, so while the daemon is
// running a second process cannot open the index for writing. In that
// case the index is reopened read-only past the lock guard: reads
// (list, call) keep working alongside the daemon, mutations report
// the index as read-only.
func OpenIndex(dataDir string) (*Index, error) {
	opts := badger.DefaultOptions(filepath.Join(dataDir, "index.db"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err == nil {
		return &Index{db: db}, nil
	}
	if !strings.Contains(err.Error(), "Cannot acquire directory lock") {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	roOpts := opts
	roOpts.ReadOnly = true
	roOpts.BypassLockGuard = true
	db, err = badger.Open(roOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database read-only: %w", err)
	}
	return &Index{db: db, readOnly: true}, nil
}

// ReadOnly reports whether the index was opened read-only because
// another process holds the directory lock.
func (i *Index) ReadOnly() bool {
	return i.readOnly
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

func indexKey(name string) []byte {
	return []byte(indexKeyPrefix + name)
}

// Get retrieves one artifact record.
func (i *Index) Get(name string) (*types.FunctionArtifact, error) {
	var artifact *types.FunctionArtifact

	err := i.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return pyreerrors.ErrFunctionNotFound
		}
		if err != nil {
			return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeReadFailed, "index read failed", err)
		}
		return item.Value(func(val []byte) error {
			artifact = &types.FunctionArtifact{}
			if err := json.Unmarshal(val, artifact); err != nil {
				return fmt.Errorf("failed to unmarshal artifact record: %w", err)
			}
			return nil
		})
	})

	return artifact, err
}

// Put writes one artifact record, stamping UpdatedAt.
func (i *Index) Put(artifact *types.FunctionArtifact) error {
	if i.readOnly {
		return pyreerrors.New(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed,
			"index is read-only: another pyre process holds it open")
	}

	artifact.UpdatedAt = time.Now()
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = artifact.UpdatedAt
	}

	val, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact record: %w", err)
	}

	err = i.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(artifact.Name), val)
	})
	if err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "index write failed", err)
	}
	return nil
}

// Delete removes one artifact record. Deleting an absent record is a
// no-op.
func (i *Index) Delete(name string) error {
	if i.readOnly {
		return pyreerrors.New(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed,
			"index is read-only: another pyre process holds it open")
	}

	err := i.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(indexKey(name))
	})
	if err != nil {
		return pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeWriteFailed, "index delete failed", err)
	}
	return nil
}

// List returns all artifact records.
func (i *Index) List() ([]types.FunctionArtifact, error) {
	var artifacts []types.FunctionArtifact

	err := i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(indexKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var artifact types.FunctionArtifact
				if err := json.Unmarshal(val, &artifact); err != nil {
					return fmt.Errorf("failed to unmarshal artifact record: %w", err)
				}
				artifacts = append(artifacts, artifact)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pyreerrors.Wrap(pyreerrors.DomainPersistence, pyreerrors.CodeReadFailed, "index list failed", err)
	}

	return artifacts, nil
}
