package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

// KnowledgeBaseRepository implements storage.KnowledgeBaseRepository for BadgerDB.
type KnowledgeBaseRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeBaseRepository = (*KnowledgeBaseRepository)(nil)

// NewKnowledgeBaseRepository creates a new KnowledgeBaseRepository.
func NewKnowledgeBaseRepository(backend *Backend) (*KnowledgeBaseRepository, error) {
	idSeq, err := backend.GetSequence(kbIDSeq)
	if err != nil {
		return nil, err
	}
	return &KnowledgeBaseRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeBaseRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *KnowledgeBaseRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddKnowledgeBase stores a new knowledge base, generating an ID when unset.
func (r *KnowledgeBaseRepository) AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if kb.BaseID == 0 {
			nextID, err := r.idSeq.Next()
			if err != nil {
				return err
			}
			if nextID == 0 {
				nextID, err = r.idSeq.Next()
				if err != nil {
					return err
				}
			}
			kb.BaseID = core.ID(nextID)
		}

		if kb.CreatedAt.IsZero() {
			kb.CreatedAt = time.Now().UTC()
		}
		kb.UpdatedAt = kb.CreatedAt

		if err := tx.Set(makeKnowledgeBaseKey(kb.BaseID), storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		userKey := makeKnowledgeBaseUserKey(kb.UserID, kb.BaseID)
		if err := tx.Set(userKey, storage.MarshalID(kb.BaseID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// GetKnowledgeBase retrieves a knowledge base by ID.
func (r *KnowledgeBaseRepository) GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error) {
	var kb *core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		kb, err = readKnowledgeBase(tx, makeKnowledgeBaseKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, storage.ErrNotFound
	}
	return kb, nil
}

// UpdateKnowledgeBase replaces an existing knowledge base record.
func (r *KnowledgeBaseRepository) UpdateKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeKnowledgeBaseKey(kb.BaseID)
		old, err := readKnowledgeBase(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		kb.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalKnowledgeBase(kb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteKnowledgeBase removes a knowledge base record and its user index entry.
func (r *KnowledgeBaseRepository) DeleteKnowledgeBase(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeKnowledgeBaseKey(id)
		kb, err := readKnowledgeBase(tx, key)
		if err != nil {
			return err
		}
		if kb == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeKnowledgeBaseUserKey(kb.UserID, kb.BaseID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListKnowledgeBasesByUser retrieves a user's bases ordered by ID.
func (r *KnowledgeBaseRepository) ListKnowledgeBasesByUser(ctx context.Context, userID core.ID) ([]*core.KnowledgeBase, error) {
	var kbs []*core.KnowledgeBase
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialKnowledgeBaseUserKey(userID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var baseID core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				baseID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			kb, err := readKnowledgeBase(tx, makeKnowledgeBaseKey(baseID))
			if err != nil {
				return err
			}
			if kb != nil {
				kbs = append(kbs, kb)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return kbs, nil
}

func readKnowledgeBase(tx *badger.Txn, key []byte) (*core.KnowledgeBase, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var kb *core.KnowledgeBase
	err = item.Value(func(val []byte) error {
		var err error
		kb, err = storage.UnmarshalKnowledgeBase(val)
		return err
	})
	return kb, err
}
