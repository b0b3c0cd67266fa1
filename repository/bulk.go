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

	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
)

// BulkIncrement adds delta to column on every row matching c in a single
// UPDATE and returns the number of rows changed.
//
// The statement bypasses the session: instances it already manages keep
// their old values until Session.Clear (or Detach) and a fresh read. Flushing
// such a stale instance after other changes writes only its own dirty
// columns, so the incremented column is not overwritten. Criteria columns
// must be unqualified.
func (r *baseRepositoryImpl[T]) BulkIncrement(ctx context.Context, column string, delta int, c types.Criteria) (int64, error) {
	if !types.ValidIdent(column) {
		return 0, fmt.Errorf("%w: illegal column %q", ErrInvalidArgument, column)
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}
	q := r.session.conn.NewUpdate().
		Model((*T)(nil)).
		Set("? = ? + ?", bun.Ident(column), bun.Ident(column), delta).
		ApplyQueryBuilder(whereCriteria("", c))
	if c.IsEmpty() {
		q = q.Where("1 = 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, database.WrapStorageError(r.op("bulk update"), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.WrapStorageError(r.op("bulk update"), err)
	}
	r.session.logger.Debug("Bulk update executed", "table", r.table.Name, "column", column, "delta", delta, "rows", n)
	return n, nil
}
