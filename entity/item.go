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

package entity

import (
	"github.com/uptrace/bun"
)

// Item has a caller-assigned id, so newness is decided by the creation
// timestamp rather than by the key.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:item"`

	ID string `bun:"id,pk" json:"id" validate:"required,max=64"`
	BaseTimeEntity
}

func NewItem(id string) *Item {
	return &Item{ID: id}
}

func (i *Item) IsNew() bool { return i.CreatedDate.IsZero() }
