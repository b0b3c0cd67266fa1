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
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Sort is a single ordering key.
type Sort struct {
	Field     string
	Direction Direction
}

// SortBy builds ascending or descending keys; a leading "-" on a field means DESC.
// SortBy("-username", "id") orders by username DESC, id ASC.
func SortBy(fields ...string) []Sort {
	sorts := make([]Sort, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			sorts = append(sorts, Sort{Field: f[1:], Direction: Desc})
			continue
		}
		sorts = append(sorts, Sort{Field: f, Direction: Asc})
	}
	return sorts
}

func (s Sort) String() string {
	return s.Field + " " + s.Direction.String()
}

// PageRequest describes a window over ordered rows: offset, limit and sort keys.
type PageRequest struct {
	offset int
	limit  int
	sorts  []Sort
}

// NewPageRequest builds a request for the zero-based page number of the given size.
func NewPageRequest(page int, size int, sorts ...Sort) *PageRequest {
	return &PageRequest{offset: page * size, limit: size, sorts: sorts}
}

// NewOffsetRequest builds a request from a raw offset and limit.
func NewOffsetRequest(offset int, limit int, sorts ...Sort) *PageRequest {
	return &PageRequest{offset: offset, limit: limit, sorts: sorts}
}

// NewCursorRequest resumes the window encoded in cursor. An empty cursor
// starts at the first row.
func NewCursorRequest(cursor string, limit int, sorts ...Sort) (*PageRequest, error) {
	offset, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	return NewOffsetRequest(offset, limit, sorts...), nil
}

func (p *PageRequest) GetOffset() int { return p.offset }

func (p *PageRequest) GetLimit() int { return p.limit }

// GetPageNumber returns the zero-based page the offset falls in.
func (p *PageRequest) GetPageNumber() int {
	if p.limit <= 0 {
		return 0
	}
	return p.offset / p.limit
}

func (p *PageRequest) GetSorts() []Sort { return p.sorts }

func (p *PageRequest) IsFirst() bool { return p.offset == 0 }

// Next returns the request for the window right after this one.
func (p *PageRequest) Next() *PageRequest {
	return &PageRequest{offset: p.offset + p.limit, limit: p.limit, sorts: p.sorts}
}

// Validate rejects non-positive limits, negative offsets and malformed sort keys.
func (p *PageRequest) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: page request is nil", ErrInvalidArgument)
	}
	if p.limit <= 0 {
		return fmt.Errorf("%w: limit must be greater than 0, got %d", ErrInvalidArgument, p.limit)
	}
	if p.offset < 0 {
		return fmt.Errorf("%w: offset must not be negative, got %d", ErrInvalidArgument, p.offset)
	}
	for _, s := range p.sorts {
		if !ValidIdent(s.Field) {
			return fmt.Errorf("%w: illegal sort field %q", ErrInvalidArgument, s.Field)
		}
		if !s.Direction.IsValid() {
			return fmt.Errorf("%w: illegal sort direction for %s", ErrInvalidArgument, s.Field)
		}
	}
	return nil
}

// Page is a bounded window of T together with the total number of matching rows.
type Page[T any] struct {
	Content       []*T
	Number        int
	Size          int
	TotalElements int64
	TotalPages    int
	First         bool
	HasNext       bool
	offset        int
	sorts         []Sort
}

// NewPage assembles a page from the content fetched for req and the count of
// all matching rows. HasNext is derived from offset+len(content) against
// total. When rows came back, a total lower than the rows already seen is
// raised to that bound; an empty window past the end keeps the count as is.
func NewPage[T any](content []*T, req *PageRequest, total int64) *Page[T] {
	if content == nil {
		content = make([]*T, 0)
	}
	seen := int64(req.GetOffset() + len(content))
	if len(content) > 0 && total < seen {
		total = seen
	}
	limit := int64(req.GetLimit())
	return &Page[T]{
		Content:       content,
		Number:        req.GetPageNumber(),
		Size:          req.GetLimit(),
		TotalElements: total,
		TotalPages:    int((total + limit - 1) / limit),
		First:         req.IsFirst(),
		HasNext:       seen < total,
		offset:        req.GetOffset(),
		sorts:         req.GetSorts(),
	}
}

func (p *Page[T]) IsLast() bool { return !p.HasNext }

func (p *Page[T]) HasPrevious() bool { return !p.First }

func (p *Page[T]) NumberOfElements() int { return len(p.Content) }

// NextPageRequest returns the request for the following page with the same
// sort order, or nil on the last page.
func (p *Page[T]) NextPageRequest() *PageRequest {
	if !p.HasNext {
		return nil
	}
	return NewOffsetRequest(p.offset+p.Size, p.Size, p.sorts...)
}

// MapPage converts the content of a page while keeping its metadata.
func MapPage[T any, R any](p *Page[T], fn func(*T) *R) *Page[R] {
	content := make([]*R, len(p.Content))
	for i, item := range p.Content {
		content[i] = fn(item)
	}
	return &Page[R]{
		Content:       content,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		HasNext:       p.HasNext,
		offset:        p.offset,
		sorts:         p.sorts,
	}
}

// Slice is a bounded window of T without a total count. HasNext comes from
// fetching one row past the limit.
type Slice[T any] struct {
	Content    []*T
	Number     int
	Size       int
	First      bool
	HasNext    bool
	NextCursor string
}

// NewSlice builds a slice from up to limit+1 rows fetched for req. The
// lookahead row, when present, is dropped from the content.
func NewSlice[T any](rows []*T, req *PageRequest) *Slice[T] {
	hasNext := false
	if len(rows) > req.GetLimit() {
		hasNext = true
		rows = rows[:req.GetLimit()]
	}
	if rows == nil {
		rows = make([]*T, 0)
	}
	s := &Slice[T]{
		Content: rows,
		Number:  req.GetPageNumber(),
		Size:    req.GetLimit(),
		First:   req.IsFirst(),
		HasNext: hasNext,
	}
	if hasNext {
		s.NextCursor = EncodeCursor(req.GetOffset() + req.GetLimit())
	}
	return s
}

func (s *Slice[T]) IsLast() bool { return !s.HasNext }

func (s *Slice[T]) NumberOfElements() int { return len(s.Content) }

// MapSlice converts the content of a slice while keeping its metadata.
func MapSlice[T any, R any](s *Slice[T], fn func(*T) *R) *Slice[R] {
	content := make([]*R, len(s.Content))
	for i, item := range s.Content {
		content[i] = fn(item)
	}
	return &Slice[R]{
		Content:    content,
		Number:     s.Number,
		Size:       s.Size,
		First:      s.First,
		HasNext:    s.HasNext,
		NextCursor: s.NextCursor,
	}
}

const cursorPrefix = "o:"

// EncodeCursor turns an offset into an opaque token.
func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to offset 0.
func DecodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed cursor: %v", ErrInvalidArgument, err)
	}
	s := string(b)
	if !strings.HasPrefix(s, cursorPrefix) {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidArgument)
	}
	offset, err := strconv.Atoi(strings.TrimPrefix(s, cursorPrefix))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: malformed cursor", ErrInvalidArgument)
	}
	return offset, nil
}
