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
	"fmt"
	"strings"

	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
)

// ErrInvalidArgument is returned for malformed paging requests, criteria,
// sort keys and entities failing validation. No query is issued.
var ErrInvalidArgument = types.ErrInvalidArgument

// column quotes field, qualifying it with alias unless it already is.
func column(alias, field string) bun.Ident {
	if alias == "" || strings.Contains(field, ".") {
		return bun.Ident(field)
	}
	return bun.Ident(alias + "." + field)
}

// whereCriteria renders c onto any query builder, so the same criteria
// serve select, count and update statements.
func whereCriteria(alias string, c types.Criteria) func(bun.QueryBuilder) bun.QueryBuilder {
	return func(qb bun.QueryBuilder) bun.QueryBuilder {
		for _, cond := range c.Conditions() {
			col := column(alias, cond.Field)
			switch cond.Op {
			case types.OpIsNull:
				qb = qb.Where("? IS NULL", col)
			case types.OpIn:
				qb = qb.Where("? IN (?)", col, bun.In(cond.Value))
			default:
				qb = qb.Where(fmt.Sprintf("? %s ?", cond.Op), col, cond.Value)
			}
		}
		return qb
	}
}

func applyCriteria(q *bun.SelectQuery, alias string, c types.Criteria) (*bun.SelectQuery, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return q.ApplyQueryBuilder(whereCriteria(alias, c)), nil
}

func validateSorts(sorts []types.Sort) error {
	for _, s := range sorts {
		if !types.ValidIdent(s.Field) {
			return fmt.Errorf("%w: illegal sort field %q", ErrInvalidArgument, s.Field)
		}
		if !s.Direction.IsValid() {
			return fmt.Errorf("%w: illegal sort direction for %s", ErrInvalidArgument, s.Field)
		}
	}
	return nil
}

func applySorts(q *bun.SelectQuery, alias string, sorts []types.Sort) (*bun.SelectQuery, error) {
	if err := validateSorts(sorts); err != nil {
		return nil, err
	}
	for _, s := range sorts {
		q = q.OrderExpr("? "+s.Direction.String(), column(alias, s.Field))
	}
	return q, nil
}
