/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"

	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines lookup and persistence of a single entity type.
// Entities returned are managed by the repository's session.
type CrudRepository[T any] interface {
	// FindByID returns (nil, false, nil) when no row has the id.
	FindByID(ctx context.Context, id any) (*T, bool, error)

	FindAll(ctx context.Context, criteria types.Criteria, sorts ...types.Sort) ([]*T, error)

	FindOne(ctx context.Context, criteria types.Criteria, sorts ...types.Sort) (*T, bool, error)

	Count(ctx context.Context, criteria types.Criteria) (int, error)

	Exists(ctx context.Context, criteria types.Criteria) (bool, error)

	// Save inserts a new entity or merges a detached one by primary key.
	Save(ctx context.Context, entity *T) error

	SaveAll(ctx context.Context, entities ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities ...*T) error

	Delete(ctx context.Context, entity *T) error
}

// PageQueryRepository runs counted and uncounted paginated queries.
type PageQueryRepository[T any] interface {
	FetchPage(ctx context.Context, criteria types.Criteria, page *types.PageRequest, opts ...QueryOption) (*types.Page[T], error)
	FetchSlice(ctx context.Context, criteria types.Criteria, page *types.PageRequest, opts ...QueryOption) (*types.Slice[T], error)
}

// BulkRepository runs set-based statements that bypass the session.
type BulkRepository[T any] interface {
	BulkIncrement(ctx context.Context, column string, delta int, criteria types.Criteria) (int64, error)
}

// ReadOnlyRepository loads entities whose in-memory changes are never flushed.
type ReadOnlyRepository[T any] interface {
	FindReadOnly(ctx context.Context, criteria types.Criteria) (*T, bool, error)
}

// Repository combines the operations above and exposes Bun query builders,
// bound to the session's connection, for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	BulkRepository[T]
	ReadOnlyRepository[T]
	Session() *Session
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
