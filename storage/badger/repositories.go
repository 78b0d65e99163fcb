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

import "github.com/poiesic/lorebase/storage"

// Repositories bundles every repository over one backend.
type Repositories struct {
	Conversations storage.ConversationRepository
	Messages      storage.MessageRepository
	Documents     storage.DocumentRepository
	Bases         storage.KnowledgeBaseRepository

	backend *Backend
}

// Close releases all repositories and the backend.
func (r *Repositories) Close() error {
	r.Documents.Close()
	r.Bases.Close()
	r.Conversations.Close()
	r.Messages.Close()
	return r.backend.Close()
}

// NewRepositories creates all repositories over the given backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	docs, err := NewDocumentRepository(backend)
	if err != nil {
		return nil, err
	}
	bases, err := NewKnowledgeBaseRepository(backend)
	if err != nil {
		docs.Close()
		return nil, err
	}
	return &Repositories{
		Conversations: NewConversationRepository(backend),
		Messages:      NewMessageRepository(backend),
		Documents:     docs,
		Bases:         bases,
		backend:       backend,
	}, nil
}

// NewRepositoriesAt opens the database at filePath and creates all
// repositories over it.
func NewRepositoriesAt(filePath string) (*Repositories, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must close the returned bundle when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}
