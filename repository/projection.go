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

// Column is a selected expression and the name it is returned under.
type Column struct {
	Expr  string
	Alias string
}

// Join is a raw join clause, e.g. "LEFT JOIN teams AS t ON t.id = m.team_id".
type Join struct {
	Expr string
	Args []interface{}
}

// Shape describes the output of a projection query. Criteria and sort keys
// used with a shape refer to the aliases declared in Table and Joins.
type Shape struct {
	Table   string
	Columns []Column
	Joins   []Join
}

func (sh Shape) query(db bun.IDB, c types.Criteria, sorts []types.Sort) (*bun.SelectQuery, error) {
	q := db.NewSelect().TableExpr(sh.Table)
	for _, col := range sh.Columns {
		q = q.ColumnExpr("? AS ?", bun.Safe(col.Expr), bun.Ident(col.Alias))
	}
	for _, j := range sh.Joins {
		q = q.Join(j.Expr, j.Args...)
	}
	q, err := applyCriteria(q, "", c)
	if err != nil {
		return nil, err
	}
	return applySorts(q, "", sorts)
}

// FetchProjection scans the shape's columns into P by column alias. Only the
// listed columns are selected and no entity is loaded or managed.
func FetchProjection[P any](ctx context.Context, db bun.IDB, shape Shape, c types.Criteria, sorts ...types.Sort) ([]P, error) {
	q, err := shape.query(db, c, sorts)
	if err != nil {
		return nil, err
	}
	out := make([]P, 0)
	if err := q.Scan(ctx, &out); err != nil {
		return nil, database.WrapStorageError("projection "+shape.Table, err)
	}
	return out, nil
}

// FetchConstructed hands each row to ctor, which scans the shape's columns
// positionally and builds the result.
func FetchConstructed[P any](ctx context.Context, db bun.IDB, shape Shape, c types.Criteria, ctor func(scan func(dest ...any) error) (P, error), sorts ...types.Sort) ([]P, error) {
	q, err := shape.query(db, c, sorts)
	if err != nil {
		return nil, err
	}
	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, database.WrapStorageError("projection "+shape.Table, err)
	}
	defer rows.Close()

	out := make([]P, 0)
	for rows.Next() {
		p, err := ctor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("projection %s: %w", shape.Table, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapStorageError("projection "+shape.Table, err)
	}
	return out, nil
}
