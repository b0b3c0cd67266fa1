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
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Session is the persistence context of a unit of work. It keeps one
// instance per stored row, remembers the column values each instance was
// loaded with and writes back only the columns that changed.
//
// A Session is not safe for concurrent use.
type Session struct {
	db      *bun.DB
	conn    bun.IDB
	entries map[entityKey]*entry
	order   []entityKey
	now     func() time.Time
	auditor entity.AuditorProvider
	logger  database.Logger
}

type entityKey struct {
	table string
	pk    string
}

type entry struct {
	ptr      reflect.Value
	table    *schema.Table
	snapshot []interface{}
	readOnly bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now for audit timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithAuditor sets the actor written into audit columns.
func WithAuditor(p entity.AuditorProvider) SessionOption {
	return func(s *Session) { s.auditor = p }
}

// WithLogger sets the logger used for flush and bulk update messages.
func WithLogger(l database.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

func withConn(conn bun.IDB) SessionOption {
	return func(s *Session) { s.conn = conn }
}

// NewSession returns a session issuing queries directly on db, outside of
// any transaction. Use RunInSession for a transactional unit of work.
func NewSession(db *bun.DB, opts ...SessionOption) *Session {
	s := &Session{
		db:      db,
		conn:    db,
		entries: make(map[entityKey]*entry),
		now:     time.Now,
		auditor: entity.RandomAuditor(),
		logger:  database.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInSession runs fn inside a transaction with a fresh session, flushes
// pending changes and commits. Any error, including a failed flush, rolls
// the transaction back.
func RunInSession(ctx context.Context, db *bun.DB, fn func(ctx context.Context, s *Session) error, opts ...SessionOption) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		s := NewSession(db, append(opts, withConn(tx))...)
		if err := fn(ctx, s); err != nil {
			return err
		}
		return s.Flush(ctx)
	})
}

// DB returns the handle queries of this session run on.
func (s *Session) DB() bun.IDB { return s.conn }

func (s *Session) tableOf(typ reflect.Type) *schema.Table {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return s.db.Table(typ)
}

func pkString(table *schema.Table, strct reflect.Value) string {
	parts := make([]string, len(table.PKs))
	for i, f := range table.PKs {
		parts[i] = fmt.Sprint(f.Value(strct).Interface())
	}
	return strings.Join(parts, ",")
}

func (s *Session) keyOf(ptr reflect.Value) (entityKey, *schema.Table) {
	table := s.tableOf(ptr.Type())
	return entityKey{table: table.Name, pk: pkString(table, ptr.Elem())}, table
}

func snapshotOf(table *schema.Table, strct reflect.Value) []interface{} {
	values := make([]interface{}, len(table.DataFields))
	for i, f := range table.DataFields {
		values[i] = plainValue(f.Value(strct))
	}
	return values
}

// plainValue copies what a pointer field points to, so in-place changes
// through the pointer are still seen as changes.
func plainValue(v reflect.Value) interface{} {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
		return string(v.Bytes())
	}
	return v.Interface()
}

func (e *entry) dirtyColumns() []string {
	strct := e.ptr.Elem()
	var cols []string
	for i, f := range e.table.DataFields {
		if !reflect.DeepEqual(e.snapshot[i], plainValue(f.Value(strct))) {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// attach registers ptr as managed and returns the instance to hand out: the
// already managed one when the row is known, ptr otherwise.
func (s *Session) attach(ptr reflect.Value, readOnly bool) reflect.Value {
	key, table := s.keyOf(ptr)
	if e, ok := s.entries[key]; ok {
		return e.ptr
	}
	s.entries[key] = &entry{
		ptr:      ptr,
		table:    table,
		snapshot: snapshotOf(table, ptr.Elem()),
		readOnly: readOnly,
	}
	s.order = append(s.order, key)
	return ptr
}

func attachOne[T any](s *Session, model *T, readOnly bool) *T {
	return s.attach(reflect.ValueOf(model), readOnly).Interface().(*T)
}

func attachAll[T any](s *Session, models []*T, readOnly bool) []*T {
	for i, m := range models {
		models[i] = attachOne(s, m, readOnly)
	}
	return models
}

func lookup[T any](s *Session, id interface{}) (*T, bool) {
	table := s.tableOf(reflect.TypeOf((*T)(nil)))
	e, ok := s.entries[entityKey{table: table.Name, pk: fmt.Sprint(id)}]
	if !ok {
		return nil, false
	}
	return e.ptr.Interface().(*T), true
}

// Contains reports whether model is the instance managed for its row.
func (s *Session) Contains(model interface{}) bool {
	ptr := reflect.ValueOf(model)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return false
	}
	key, _ := s.keyOf(ptr)
	e, ok := s.entries[key]
	return ok && e.ptr.Pointer() == ptr.Pointer()
}

// IsReadOnly reports whether model is managed as read-only.
func (s *Session) IsReadOnly(model interface{}) bool {
	ptr := reflect.ValueOf(model)
	if !s.Contains(model) {
		return false
	}
	key, _ := s.keyOf(ptr)
	return s.entries[key].readOnly
}

// Detach stops tracking model; later changes to it are not flushed.
func (s *Session) Detach(model interface{}) {
	if !s.Contains(model) {
		return
	}
	key, _ := s.keyOf(reflect.ValueOf(model))
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear detaches every instance. Unflushed changes are discarded.
func (s *Session) Clear() {
	s.entries = make(map[entityKey]*entry)
	s.order = nil
}

// Size returns the number of managed instances.
func (s *Session) Size() int { return len(s.entries) }

// Flush writes the changed columns of every managed, writable instance.
// Auditable instances are stamped with PreUpdate before the write.
func (s *Session) Flush(ctx context.Context) error {
	for _, key := range s.order {
		e := s.entries[key]
		if e.readOnly || len(e.dirtyColumns()) == 0 {
			continue
		}
		if a, ok := e.ptr.Interface().(entity.Auditable); ok {
			a.PreUpdate(s.now(), s.auditor.CurrentAuditor())
		}
		cols := e.dirtyColumns()
		if _, err := s.conn.NewUpdate().Model(e.ptr.Interface()).Column(cols...).WherePK().Exec(ctx); err != nil {
			return database.WrapStorageError("flush "+key.table, err)
		}
		e.snapshot = snapshotOf(e.table, e.ptr.Elem())
		s.logger.Debug("Flushed dirty columns", "table", key.table, "pk", key.pk, "columns", cols)
	}
	return nil
}

// stampNew runs PrePersist on model when it is auditable.
func (s *Session) stampNew(model interface{}) {
	if a, ok := model.(entity.Auditable); ok {
		a.PrePersist(s.now(), s.auditor.CurrentAuditor())
	}
}

func (s *Session) stampUpdate(model interface{}) {
	if a, ok := model.(entity.Auditable); ok {
		a.PreUpdate(s.now(), s.auditor.CurrentAuditor())
	}
}
