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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/entity"
	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

var validate = validator.New()

type baseRepositoryImpl[T any] struct {
	session *Session
	table   *schema.Table
}

// NewRepository returns a generic repository whose entities are managed by s.
func NewRepository[T any](s *Session) Repository[T] {
	return newRepository[T](s)
}

func newRepository[T any](s *Session) *baseRepositoryImpl[T] {
	return &baseRepositoryImpl[T]{session: s, table: s.tableOf(reflect.TypeOf((*T)(nil)))}
}

func (r *baseRepositoryImpl[T]) Session() *Session { return r.session }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.session.conn.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.session.conn.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.session.conn.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.session.conn.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.session.conn.NewDelete() }

func (r *baseRepositoryImpl[T]) alias() string { return r.table.Alias }

func (r *baseRepositoryImpl[T]) op(name string) string { return name + " " + r.table.Name }

// selectQuery renders criteria and sorts over the entity table. A single
// primary key is appended as the last sort key so paging is deterministic.
func (r *baseRepositoryImpl[T]) selectQuery(dest interface{}, c types.Criteria, sorts []types.Sort, shape func(*bun.SelectQuery) *bun.SelectQuery) (*bun.SelectQuery, error) {
	q := r.session.conn.NewSelect().Model(dest)
	if shape != nil {
		q = shape(q)
	}
	q, err := applyCriteria(q, r.alias(), c)
	if err != nil {
		return nil, err
	}
	if q, err = applySorts(q, r.alias(), sorts); err != nil {
		return nil, err
	}
	if len(r.table.PKs) == 1 {
		pk := r.table.PKs[0].Name
		for _, s := range sorts {
			if s.Field == pk || s.Field == r.alias()+"."+pk {
				return q, nil
			}
		}
		q = q.OrderExpr("? ASC", column(r.alias(), pk))
	}
	return q, nil
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id any) (*T, bool, error) {
	if m, ok := lookup[T](r.session, id); ok {
		return m, true, nil
	}
	if len(r.table.PKs) != 1 {
		return nil, false, fmt.Errorf("%w: %s has %d primary key columns", ErrInvalidArgument, r.table.Name, len(r.table.PKs))
	}
	model := new(T)
	err := r.session.conn.NewSelect().
		Model(model).
		Where("? = ?", column(r.alias(), r.table.PKs[0].Name), id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, database.WrapStorageError(r.op("find"), err)
	}
	return attachOne(r.session, model, false), true, nil
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, c types.Criteria, sorts ...types.Sort) ([]*T, error) {
	models := make([]*T, 0)
	q, err := r.selectQuery(&models, c, sorts, nil)
	if err != nil {
		return nil, err
	}
	if err := q.Scan(ctx); err != nil {
		return nil, database.WrapStorageError(r.op("find"), err)
	}
	return attachAll(r.session, models, false), nil
}

func (r *baseRepositoryImpl[T]) findFirst(ctx context.Context, c types.Criteria, sorts []types.Sort, readOnly bool) (*T, bool, error) {
	models := make([]*T, 0, 1)
	q, err := r.selectQuery(&models, c, sorts, nil)
	if err != nil {
		return nil, false, err
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, false, database.WrapStorageError(r.op("find"), err)
	}
	if len(models) == 0 {
		return nil, false, nil
	}
	return attachOne(r.session, models[0], readOnly), true, nil
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, c types.Criteria, sorts ...types.Sort) (*T, bool, error) {
	return r.findFirst(ctx, c, sorts, false)
}

// FindReadOnly loads the first match and tracks it as read-only: Flush never
// writes it back. A row already managed as writable is returned as is.
func (r *baseRepositoryImpl[T]) FindReadOnly(ctx context.Context, c types.Criteria) (*T, bool, error) {
	return r.findFirst(ctx, c, nil, true)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, c types.Criteria) (int, error) {
	q, err := applyCriteria(r.session.conn.NewSelect().Model((*T)(nil)), r.alias(), c)
	if err != nil {
		return 0, err
	}
	n, err := q.Count(ctx)
	return n, database.WrapStorageError(r.op("count"), err)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, c types.Criteria) (bool, error) {
	q, err := applyCriteria(r.session.conn.NewSelect().Model((*T)(nil)), r.alias(), c)
	if err != nil {
		return false, err
	}
	ok, err := q.Exists(ctx)
	return ok, database.WrapStorageError(r.op("exists"), err)
}

func validateEntity(model interface{}) error {
	if err := validate.Struct(model); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) isNew(model *T) bool {
	if p, ok := any(model).(entity.Persistable); ok {
		return p.IsNew()
	}
	strct := reflect.ValueOf(model).Elem()
	for _, pk := range r.table.PKs {
		if !pk.HasZeroValue(strct) {
			return false
		}
	}
	return true
}

// Save persists a new entity and manages it. An entity that is not new is
// merged: the managed instance is left to Flush, a detached one has its state
// copied onto the managed instance of the same row if there is one, and is
// otherwise upserted by primary key and managed from then on.
func (r *baseRepositoryImpl[T]) Save(ctx context.Context, model *T) error {
	if model == nil {
		return fmt.Errorf("%w: nil entity", ErrInvalidArgument)
	}
	if err := validateEntity(model); err != nil {
		return err
	}
	if r.isNew(model) {
		r.session.stampNew(model)
		if _, err := r.session.conn.NewInsert().Model(model).Exec(ctx); err != nil {
			return database.WrapStorageError(r.op("insert"), err)
		}
		attachOne(r.session, model, false)
		return nil
	}
	if r.session.Contains(model) {
		return nil
	}
	if managed, ok := lookup[T](r.session, pkString(r.table, reflect.ValueOf(model).Elem())); ok {
		*managed = *model
		return nil
	}
	r.session.stampUpdate(model)
	if err := r.Upsert(ctx, r.dataColumns(), r.pkColumns(), model); err != nil {
		return err
	}
	attachOne(r.session, model, false)
	return nil
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, entities ...*T) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, model *T) error {
	if _, err := r.session.conn.NewDelete().Model(model).WherePK().Exec(ctx); err != nil {
		return database.WrapStorageError(r.op("delete"), err)
	}
	r.session.Detach(model)
	return nil
}

func (r *baseRepositoryImpl[T]) dataColumns() []string {
	cols := make([]string, len(r.table.DataFields))
	for i, f := range r.table.DataFields {
		cols[i] = f.Name
	}
	return cols
}

func (r *baseRepositoryImpl[T]) pkColumns() []string {
	cols := make([]string, len(r.table.PKs))
	for i, f := range r.table.PKs {
		cols[i] = f.Name
	}
	return cols
}

// Upsert inserts entities, updating fields on rows whose duplicateKeys
// already exist. The statement follows the dialect: ON CONFLICT, ON
// DUPLICATE KEY, or insert-then-update when neither is supported.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entities ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: upsert fields cannot be empty", ErrInvalidArgument)
	}
	for _, cols := range [][]string{fields, duplicateKeys} {
		for _, f := range cols {
			if !types.ValidIdent(f) {
				return fmt.Errorf("%w: illegal column %q", ErrInvalidArgument, f)
			}
		}
	}
	if len(entities) == 0 {
		return nil
	}

	var err error
	switch {
	case r.session.db.HasFeature(feature.InsertOnConflict):
		err = r.upsertOnConflict(ctx, fields, duplicateKeys, entities)
	case r.session.db.HasFeature(feature.InsertOnDuplicateKey):
		err = r.upsertOnDuplicateKey(ctx, fields, entities)
	default:
		err = r.upsertFallback(ctx, entities)
	}
	return database.WrapStorageError(r.op("upsert"), err)
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, fields []string, entities []*T) error {
	q := r.session.conn.NewInsert().Model(&entities).On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		q = q.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	keys := make([]string, len(duplicateKeys))
	args := make([]interface{}, len(duplicateKeys))
	for i, k := range duplicateKeys {
		keys[i] = "?"
		args[i] = bun.Ident(k)
	}
	q := r.session.conn.NewInsert().
		Model(&entities).
		On("CONFLICT ("+strings.Join(keys, ", ")+") DO UPDATE", args...)
	for _, field := range fields {
		q = q.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, entities []*T) error {
	for _, e := range entities {
		if _, err := r.session.conn.NewInsert().Model(e).Exec(ctx); err != nil {
			if _, updateErr := r.session.conn.NewUpdate().Model(e).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}
