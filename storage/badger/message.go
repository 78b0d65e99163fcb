// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

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

// MessageRepository implements storage.MessageRepository for BadgerDB.
type MessageRepository struct {
	backend *Backend
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) *MessageRepository {
	return &MessageRepository{backend: backend}
}

// Close implements storage.Repository. Messages hold no sequence.
func (r *MessageRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *MessageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddMessage stores a new message node.
func (r *MessageRepository) AddMessage(ctx context.Context, msg *core.Message) error {
	if err := core.ValidateMessage(msg); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(msg.ConversationID, msg.MessageID)
		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		msg.UpdatedAt = msg.CreatedAt

		if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
			return err
		}

		// Creation-order index for history walks
		orderKey := makeMessageOrderKey(msg.ConversationID, msg.CreatedAt, msg.MessageID)
		if err := tx.Set(orderKey, []byte(msg.MessageID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetMessage retrieves a message by conversation and message ID.
func (r *MessageRepository) GetMessage(ctx context.Context, convID, id string) (*core.Message, error) {
	var msg *core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		msg, err = readMessage(tx, makeMessageKey(convID, id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, storage.ErrNotFound
	}
	return msg, nil
}

// UpdateMessage replaces an existing message record.
func (r *MessageRepository) UpdateMessage(ctx context.Context, msg *core.Message) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(msg.ConversationID, msg.MessageID)
		old, err := readMessage(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		msg.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// AppendChild adds childID to the parent's Children list, exactly once.
func (r *MessageRepository) AppendChild(ctx context.Context, convID, parentID, childID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeMessageKey(convID, parentID)
		parent, err := readMessage(tx, key)
		if err != nil {
			return err
		}
		if parent == nil {
			return storage.ErrNotFound
		}

		if slices.Contains(parent.Children, childID) {
			return nil
		}

		parent.Children = append(parent.Children, childID)
		parent.UpdatedAt = time.Now().UTC()
		if err := tx.Set(key, storage.MarshalMessage(parent)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListMessages retrieves all messages of a conversation in creation order.
func (r *MessageRepository) ListMessages(ctx context.Context, convID string) ([]*core.Message, error) {
	var msgs []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessageOrderPrefix(convID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msgID string
			err := iter.Item().Value(func(val []byte) error {
				msgID = string(val)
				return nil
			})
			if err != nil {
				return err
			}
			msg, err := readMessage(tx, makeMessageKey(convID, msgID))
			if err != nil {
				return err
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessages removes every message of a conversation.
func (r *MessageRepository) DeleteMessages(ctx context.Context, convID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range [][]byte{makeMessagePrefix(convID), makeMessageOrderPrefix(convID)} {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			iter := tx.NewIterator(opts)

			var keys [][]byte
			for iter.Rewind(); iter.Valid(); iter.Next() {
				keys = append(keys, iter.Item().KeyCopy(nil))
			}
			iter.Close()

			for _, key := range keys {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

func readMessage(tx *badger.Txn, key []byte) (*core.Message, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msg *core.Message
	err = item.Value(func(val []byte) error {
		var err error
		msg, err = storage.UnmarshalMessage(val)
		return err
	})
	return msg, err
}
