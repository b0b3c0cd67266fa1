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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ n int }

func rows(n int) []*row {
	out := make([]*row, n)
	for i := range out {
		out[i] = &row{n: i}
	}
	return out
}

func TestPageRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     *PageRequest
		wantErr bool
	}{
		{"ok", NewPageRequest(0, 3), false},
		{"zero limit", NewPageRequest(0, 0), true},
		{"negative limit", NewOffsetRequest(0, -1), true},
		{"negative offset", NewOffsetRequest(-3, 3), true},
		{"bad sort field", NewPageRequest(0, 3, Sort{Field: "name; drop"}), true},
		{"bad direction", NewPageRequest(0, 3, Sort{Field: "name", Direction: Direction(7)}), true},
		{"qualified sort", NewPageRequest(1, 3, SortBy("-m.username")...), false},
		{"nil", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewPageFiveRowsLimitThree(t *testing.T) {
	p := NewPage(rows(3), NewPageRequest(0, 3), 5)

	assert.Len(t, p.Content, 3)
	assert.EqualValues(t, 5, p.TotalElements)
	assert.Equal(t, 2, p.TotalPages)
	assert.Equal(t, 0, p.Number)
	assert.True(t, p.First)
	assert.True(t, p.HasNext)
	assert.False(t, p.IsLast())

	next := p.NextPageRequest()
	require.NotNil(t, next)
	assert.Equal(t, 3, next.GetOffset())
	assert.Equal(t, 1, next.GetPageNumber())

	last := NewPage(rows(2), NewPageRequest(1, 3), 5)
	assert.False(t, last.First)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrevious())
	assert.Nil(t, last.NextPageRequest())
}

func TestNewPageRaisesStaleTotal(t *testing.T) {
	// count says 4 but the data query already returned rows 3..5
	p := NewPage(rows(3), NewPageRequest(1, 3), 4)
	assert.EqualValues(t, 6, p.TotalElements)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
}

func TestNewPageEmpty(t *testing.T) {
	p := NewPage[row](nil, NewPageRequest(0, 10), 0)
	assert.NotNil(t, p.Content)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.First)
}

func TestNewPagePastTheEndKeepsTotal(t *testing.T) {
	cases := []struct {
		name      string
		req       *PageRequest
		total     int64
		wantPages int
	}{
		{"one page past", NewPageRequest(2, 3), 5, 2},
		{"far past", NewPageRequest(3, 3), 5, 2},
		{"no rows at later page", NewPageRequest(2, 3), 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPage[row](nil, tc.req, tc.total)
			assert.Empty(t, p.Content)
			assert.Equal(t, tc.total, p.TotalElements)
			assert.Equal(t, tc.wantPages, p.TotalPages)
			assert.False(t, p.HasNext)
			assert.Nil(t, p.NextPageRequest())
		})
	}
}

func TestNewSliceLookahead(t *testing.T) {
	s := NewSlice(rows(4), NewPageRequest(0, 3))
	assert.Len(t, s.Content, 3)
	assert.True(t, s.HasNext)
	assert.NotEmpty(t, s.NextCursor)

	next, err := NewCursorRequest(s.NextCursor, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, next.GetOffset())
	assert.Equal(t, 1, next.GetPageNumber())

	tail := NewSlice(rows(2), next)
	assert.False(t, tail.HasNext)
	assert.Empty(t, tail.NextCursor)
	assert.False(t, tail.First)
}

func TestCursor(t *testing.T) {
	offset, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, 0, offset)

	offset, err = DecodeCursor(EncodeCursor(42))
	require.NoError(t, err)
	assert.Equal(t, 42, offset)

	_, err = DecodeCursor("not base64 !!")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = DecodeCursor(EncodeCursor(-1))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMapPageKeepsMetadata(t *testing.T) {
	p := NewPage(rows(3), NewPageRequest(0, 3), 5)
	mapped := MapPage(p, func(r *row) *string {
		s := string(rune('a' + r.n))
		return &s
	})
	assert.Equal(t, p.TotalElements, mapped.TotalElements)
	assert.Equal(t, p.TotalPages, mapped.TotalPages)
	assert.Equal(t, "c", *mapped.Content[2])
}

func TestMapSliceKeepsMetadata(t *testing.T) {
	s := NewSlice(rows(4), NewPageRequest(1, 3))
	mapped := MapSlice(s, func(r *row) *int {
		n := r.n * 10
		return &n
	})
	require.Len(t, mapped.Content, 3)
	assert.Equal(t, 20, *mapped.Content[2])
	assert.Equal(t, s.Number, mapped.Number)
	assert.Equal(t, s.Size, mapped.Size)
	assert.Equal(t, s.First, mapped.First)
	assert.True(t, mapped.HasNext)
	assert.Equal(t, s.NextCursor, mapped.NextCursor)
}

func TestSortBy(t *testing.T) {
	sorts := SortBy("-username", "id")
	require.Len(t, sorts, 2)
	assert.Equal(t, "username DESC", sorts[0].String())
	assert.Equal(t, "id ASC", sorts[1].String())
}
