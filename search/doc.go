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

// Package search retrieves knowledge base chunks relevant to a chat query.
//
// The Searcher embeds the query, runs a filtered similarity search scoped
// to one knowledge base, and applies threshold-with-fallback semantics:
// when the primary threshold yields nothing, exactly one relaxed retry at
// the fallback threshold runs before giving up. Retrieval is best effort —
// a failing index degrades a chat answer to no-context mode instead of
// failing the conversation.
package search
