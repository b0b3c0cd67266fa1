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

package types

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
)

// ErrInvalidArgument marks requests rejected before any query is issued.
var ErrInvalidArgument = errors.New("invalid argument")

// Operator is a comparison supported by Criteria.
type Operator string

const (
	OpEq     Operator = "="
	OpNe     Operator = "<>"
	OpGt     Operator = ">"
	OpGe     Operator = ">="
	OpLt     Operator = "<"
	OpLe     Operator = "<="
	OpIn     Operator = "IN"
	OpIsNull Operator = "IS NULL"
	OpLike   Operator = "LIKE"
)

// Condition compares a single named field against a value.
type Condition struct {
	Field string
	Op    Operator
	Value interface{}
}

// Criteria is a conjunction of conditions over named fields. The zero value
// matches every row. Builders never modify the receiver.
type Criteria struct {
	conds []Condition
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdent reports whether name is a plain column or an alias-qualified one.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// Where starts a criteria with one condition.
func Where(field string, op Operator, value interface{}) Criteria {
	return Criteria{}.And(field, op, value)
}

// And returns a copy of c extended with one more condition.
func (c Criteria) And(field string, op Operator, value interface{}) Criteria {
	conds := make([]Condition, len(c.conds), len(c.conds)+1)
	copy(conds, c.conds)
	return Criteria{conds: append(conds, Condition{Field: field, Op: op, Value: value})}
}

func (c Criteria) Eq(field string, value interface{}) Criteria { return c.And(field, OpEq, value) }

func (c Criteria) Ne(field string, value interface{}) Criteria { return c.And(field, OpNe, value) }

func (c Criteria) Gt(field string, value interface{}) Criteria { return c.And(field, OpGt, value) }

func (c Criteria) Ge(field string, value interface{}) Criteria { return c.And(field, OpGe, value) }

func (c Criteria) Lt(field string, value interface{}) Criteria { return c.And(field, OpLt, value) }

func (c Criteria) Le(field string, value interface{}) Criteria { return c.And(field, OpLe, value) }

func (c Criteria) Like(field string, pattern string) Criteria { return c.And(field, OpLike, pattern) }

func (c Criteria) IsNull(field string) Criteria { return c.And(field, OpIsNull, nil) }

// In matches rows whose field is one of values. values must be a non-empty
// slice or array.
func (c Criteria) In(field string, values interface{}) Criteria { return c.And(field, OpIn, values) }

// Merge returns the conjunction of c and other.
func (c Criteria) Merge(other Criteria) Criteria {
	conds := make([]Condition, 0, len(c.conds)+len(other.conds))
	conds = append(conds, c.conds...)
	conds = append(conds, other.conds...)
	return Criteria{conds: conds}
}

// Conditions returns a copy of the conditions in insertion order.
func (c Criteria) Conditions() []Condition {
	conds := make([]Condition, len(c.conds))
	copy(conds, c.conds)
	return conds
}

func (c Criteria) IsEmpty() bool { return len(c.conds) == 0 }

// Validate checks field names, operators and IN sets.
func (c Criteria) Validate() error {
	for _, cond := range c.conds {
		if !ValidIdent(cond.Field) {
			return fmt.Errorf("%w: illegal field name %q", ErrInvalidArgument, cond.Field)
		}
		switch cond.Op {
		case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe, OpLike, OpIsNull:
		case OpIn:
			if cond.Value == nil {
				return fmt.Errorf("%w: empty IN set for %s", ErrInvalidArgument, cond.Field)
			}
			rv := reflect.ValueOf(cond.Value)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return fmt.Errorf("%w: IN on %s requires a slice, got %T", ErrInvalidArgument, cond.Field, cond.Value)
			}
			if rv.Len() == 0 {
				return fmt.Errorf("%w: empty IN set for %s", ErrInvalidArgument, cond.Field)
			}
		default:
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidArgument, cond.Op)
		}
	}
	return nil
}
