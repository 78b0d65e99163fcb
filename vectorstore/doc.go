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

// Package vectorstore is the gateway to the vector index.
//
// The Gateway exposes metadata-filtered similarity search, point queries,
// deletes and inserts over a single collection. Connections come from a
// bounded pool with scoped acquisition: every operation acquires a connection
// and releases it on every exit path.
//
// The index client is isolated behind the narrow Conn interface. Low-level
// calls report a typed Outcome (ok, retryable, fatal) so the search retry
// loop branches on a value instead of matching error strings. The production
// implementation speaks to Milvus; tests use in-memory fakes.
//
// The package also owns the payload sanitizer, which normalizes chunk
// content and metadata into the index's strict non-null schema, and the
// filter-expression builder for the index's metadata filter grammar.
package vectorstore
