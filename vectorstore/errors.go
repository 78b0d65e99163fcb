// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorstore

import (
	"errors"
	"strings"
)

var (
	// ErrFactoryRequired is returned when a connection factory is not provided.
	ErrFactoryRequired = errors.New("connection factory required")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrRetriesExhausted is returned when the search retry bound is reached
	// while the collection keeps reporting not loaded.
	ErrRetriesExhausted = errors.New("search retries exhausted")

	// ErrEmptyFilter is returned for operations that refuse to run unfiltered.
	// A delete without a filter would wipe the whole collection.
	ErrEmptyFilter = errors.New("filter expression required")
)

// Diagnosis sentinels. Permanent index errors are wrapped with one of these
// so callers can produce an operator-readable message without parsing the
// client library's error text themselves.
var (
	// ErrMissingIDField indicates the index rejected a payload without ids.
	ErrMissingIDField = errors.New("index payload missing required id field")

	// ErrNullStringField indicates the index rejected a null string field
	// in id, content or metadata.
	ErrNullStringField = errors.New("index payload contains null string field")

	// ErrCollectionAccess indicates the collection could not be reached or
	// loaded; connectivity or configuration, not payload.
	ErrCollectionAccess = errors.New("index collection access failure")
)

// Diagnose classifies an index error into one of the diagnosis sentinels,
// wrapping the original error. Unclassified errors pass through unchanged.
func Diagnose(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "id is not provided"):
		return errors.Join(ErrMissingIDField, err)
	case strings.Contains(msg, "string.length()") && strings.Contains(msg, "is null"),
		strings.Contains(msg, "null value"):
		return errors.Join(ErrNullStringField, err)
	case strings.Contains(msg, "collection"):
		return errors.Join(ErrCollectionAccess, err)
	default:
		return err
	}
}

// isNotLoaded reports whether an index error means the collection was
// unloaded between requests, which is the one retryable condition.
func isNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "collection not loaded")
}
