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
	"time"

	"github.com/google/uuid"
)

// Persistable reports whether a record has never been stored.
type Persistable interface {
	IsNew() bool
}

// Auditable records are stamped by the session: PrePersist before the first
// insert and PreUpdate before a dirty flush or a merge.
type Auditable interface {
	PrePersist(now time.Time, actor string)
	PreUpdate(now time.Time, actor string)
}

// AuditorProvider names the actor written into audit columns.
type AuditorProvider interface {
	CurrentAuditor() string
}

// AuditorFunc adapts a function to AuditorProvider.
type AuditorFunc func() string

func (f AuditorFunc) CurrentAuditor() string { return f() }

// RandomAuditor returns a provider that reports the same random UUID for
// its whole lifetime.
func RandomAuditor() AuditorProvider {
	id := uuid.NewString()
	return AuditorFunc(func() string { return id })
}

// BaseTimeEntity carries creation and modification timestamps.
type BaseTimeEntity struct {
	CreatedDate      time.Time `bun:"created_date,notnull" json:"created_date"`
	LastModifiedDate time.Time `bun:"last_modified_date,notnull" json:"last_modified_date"`
}

func (e *BaseTimeEntity) PrePersist(now time.Time, _ string) {
	e.CreatedDate = now
	e.LastModifiedDate = now
}

func (e *BaseTimeEntity) PreUpdate(now time.Time, _ string) {
	e.LastModifiedDate = now
}

// BaseEntity adds the acting user to BaseTimeEntity.
type BaseEntity struct {
	BaseTimeEntity
	CreatedBy      string `bun:"created_by" json:"created_by"`
	LastModifiedBy string `bun:"last_modified_by" json:"last_modified_by"`
}

func (e *BaseEntity) PrePersist(now time.Time, actor string) {
	e.BaseTimeEntity.PrePersist(now, actor)
	e.CreatedBy = actor
	e.LastModifiedBy = actor
}

func (e *BaseEntity) PreUpdate(now time.Time, actor string) {
	e.BaseTimeEntity.PreUpdate(now, actor)
	e.LastModifiedBy = actor
}
