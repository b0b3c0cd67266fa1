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

package pagestore

import (
	"context"
	"fmt"

	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/repository"
	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
)

// Service runs every call in its own transaction and session, so the
// entities it returns are detached. Use Run to group several operations into
// one unit of work with a shared session.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, bool, error)

	// All returns the entities matching criteria in the given order.
	All(ctx context.Context, criteria types.Criteria, sorts ...types.Sort) ([]*T, error)

	// Page returns a counted page of entities matching criteria.
	Page(ctx context.Context, criteria types.Criteria, page *types.PageRequest) (*types.Page[T], error)

	// Slice returns an uncounted window of entities matching criteria.
	Slice(ctx context.Context, criteria types.Criteria, page *types.PageRequest) (*types.Slice[T], error)

	// Save inserts new entities and merges existing ones.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// Delete removes an entity by its primary key.
	Delete(ctx context.Context, model *T) error

	// BulkIncrement adds delta to column on every matching row.
	BulkIncrement(ctx context.Context, column string, delta int, criteria types.Criteria) (int64, error)

	// Run executes fn in a single transaction; changes to entities loaded
	// through repo are flushed before commit.
	Run(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error) error

	// SelectBuilder returns a Bun select query builder for the entity.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any] struct {
	db   func() *bun.DB
	opts []repository.SessionOption
}

// NewService returns a Service bound to the global database connection.
func NewService[T any](opts ...repository.SessionOption) Service[T] {
	return &baseServiceImpl[T]{db: database.GetDB, opts: opts}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db *bun.DB, opts ...repository.SessionOption) Service[T] {
	return &baseServiceImpl[T]{db: func() *bun.DB { return db }, opts: opts}
}

func (s *baseServiceImpl[T]) Run(ctx context.Context, fn func(ctx context.Context, repo repository.Repository[T]) error) error {
	db := s.db()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return repository.RunInSession(ctx, db, func(ctx context.Context, sess *repository.Session) error {
		return fn(ctx, repository.NewRepository[T](sess))
	}, s.opts...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (model *T, ok bool, err error) {
	err = s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		model, ok, err = repo.FindByID(ctx, id)
		return err
	})
	return model, ok, err
}

func (s *baseServiceImpl[T]) All(ctx context.Context, criteria types.Criteria, sorts ...types.Sort) (models []*T, err error) {
	err = s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		models, err = repo.FindAll(ctx, criteria, sorts...)
		return err
	})
	return models, err
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, criteria types.Criteria, page *types.PageRequest) (result *types.Page[T], err error) {
	err = s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		result, err = repo.FetchPage(ctx, criteria, page)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Slice(ctx context.Context, criteria types.Criteria, page *types.PageRequest) (result *types.Slice[T], err error) {
	err = s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		result, err = repo.FetchSlice(ctx, criteria, page)
		return err
	})
	return result, err
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		return repo.SaveAll(ctx, model...)
	})
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		return repo.Upsert(ctx, fields, duplicateKeys, model...)
	})
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, model *T) error {
	return s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		return repo.Delete(ctx, model)
	})
}

func (s *baseServiceImpl[T]) BulkIncrement(ctx context.Context, column string, delta int, criteria types.Criteria) (n int64, err error) {
	err = s.Run(ctx, func(ctx context.Context, repo repository.Repository[T]) error {
		n, err = repo.BulkIncrement(ctx, column, delta, criteria)
		return err
	})
	return n, err
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.db().NewSelect().Model((*T)(nil))
}
