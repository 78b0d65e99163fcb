package badger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

// ConversationRepository implements storage.ConversationRepository for BadgerDB.
type ConversationRepository struct {
	backend *Backend
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) *ConversationRepository {
	return &ConversationRepository{backend: backend}
}

// Close implements storage.Repository. Conversations hold no sequence.
func (r *ConversationRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ConversationRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddConversation stores a new conversation.
func (r *ConversationRepository) AddConversation(ctx context.Context, conv *core.Conversation) error {
	if err := core.ValidateConversation(conv); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conv.ConversationID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if conv.CreatedAt.IsZero() {
			conv.CreatedAt = time.Now().UTC()
		}
		conv.UpdatedAt = conv.CreatedAt

		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		userKey := makeConversationUserKey(conv.UserID, conv.ConversationID)
		if err := tx.Set(userKey, []byte(conv.ConversationID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetConversation retrieves a conversation by ID.
func (r *ConversationRepository) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	var conv *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		conv, err = readConversation(tx, makeConversationKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, storage.ErrNotFound
	}
	return conv, nil
}

// UpdateConversation replaces an existing conversation record.
func (r *ConversationRepository) UpdateConversation(ctx context.Context, conv *core.Conversation) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conv.ConversationID)
		old, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		conv.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// SetCurrentNode advances the conversation's current node pointer.
func (r *ConversationRepository) SetCurrentNode(ctx context.Context, id, nodeID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(id)
		conv, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		conv.CurrentNode = nodeID
		conv.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteConversation removes a conversation record and its user index entry.
func (r *ConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(id)
		conv, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeConversationUserKey(conv.UserID, id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListConversationsByUser retrieves a user's conversations, most recently
// active first.
func (r *ConversationRepository) ListConversationsByUser(ctx context.Context, userID core.ID) ([]*core.Conversation, error) {
	var convs []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialConversationUserKey(userID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var convID string
			err := iter.Item().Value(func(val []byte) error {
				convID = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			conv, err := readConversation(tx, makeConversationKey(convID))
			if err != nil {
				return err
			}
			if conv != nil {
				convs = append(convs, conv)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(convs, func(a, b *core.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return convs, nil
}

func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var conv *core.Conversation
	err = item.Value(func(val []byte) error {
		var err error
		conv, err = storage.UnmarshalConversation(val)
		return err
	})
	return conv, err
}
