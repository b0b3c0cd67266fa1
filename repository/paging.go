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

	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
)

// QueryOption shapes the statements issued by FetchPage and FetchSlice.
type QueryOption func(*queryOptions)

type queryOptions struct {
	data  func(*bun.SelectQuery) *bun.SelectQuery
	count func(*bun.SelectQuery) *bun.SelectQuery
}

// WithQuery adds joins, relations or columns to the data query. Unless
// WithCountQuery is given, the count query is shaped the same way.
func WithQuery(fn func(*bun.SelectQuery) *bun.SelectQuery) QueryOption {
	return func(o *queryOptions) { o.data = fn }
}

// WithCountQuery shapes the count query independently of the data query,
// typically to leave out joins that cannot change the number of rows.
// Criteria are still applied on top of it.
func WithCountQuery(fn func(*bun.SelectQuery) *bun.SelectQuery) QueryOption {
	return func(o *queryOptions) { o.count = fn }
}

func newQueryOptions(opts []QueryOption) *queryOptions {
	o := &queryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.count == nil {
		o.count = o.data
	}
	return o
}

func (r *baseRepositoryImpl[T]) validatePaging(c types.Criteria, page *types.PageRequest) error {
	if err := page.Validate(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return validateSorts(page.GetSorts())
}

// FetchPage counts every row matching c, then loads the requested window.
// The data query is skipped when nothing matches.
func (r *baseRepositoryImpl[T]) FetchPage(ctx context.Context, c types.Criteria, page *types.PageRequest, opts ...QueryOption) (*types.Page[T], error) {
	if err := r.validatePaging(c, page); err != nil {
		return nil, err
	}
	o := newQueryOptions(opts)

	countQuery := r.session.conn.NewSelect().Model((*T)(nil))
	if o.count != nil {
		countQuery = o.count(countQuery)
	}
	countQuery, err := applyCriteria(countQuery, r.alias(), c)
	if err != nil {
		return nil, err
	}
	total, err := countQuery.Count(ctx)
	if err != nil {
		return nil, database.WrapStorageError(r.op("count"), err)
	}
	if total == 0 {
		return types.NewPage[T](nil, page, 0), nil
	}

	models := make([]*T, 0, page.GetLimit())
	q, err := r.selectQuery(&models, c, page.GetSorts(), o.data)
	if err != nil {
		return nil, err
	}
	if err := q.Offset(page.GetOffset()).Limit(page.GetLimit()).Scan(ctx); err != nil {
		return nil, database.WrapStorageError(r.op("page"), err)
	}
	return types.NewPage(attachAll(r.session, models, false), page, int64(total)), nil
}

// FetchSlice loads one row past the requested window to learn whether a
// next window exists. No count query is issued.
func (r *baseRepositoryImpl[T]) FetchSlice(ctx context.Context, c types.Criteria, page *types.PageRequest, opts ...QueryOption) (*types.Slice[T], error) {
	if err := r.validatePaging(c, page); err != nil {
		return nil, err
	}
	o := newQueryOptions(opts)

	models := make([]*T, 0, page.GetLimit()+1)
	q, err := r.selectQuery(&models, c, page.GetSorts(), o.data)
	if err != nil {
		return nil, err
	}
	if err := q.Offset(page.GetOffset()).Limit(page.GetLimit() + 1).Scan(ctx); err != nil {
		return nil, database.WrapStorageError(r.op("slice"), err)
	}
	slice := types.NewSlice(models, page)
	attachAll(r.session, slice.Content, false)
	return slice, nil
}
