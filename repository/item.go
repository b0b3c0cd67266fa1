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
	"github.com/tomoncle/pagestore/entity"
)

// ItemRepository stores items under caller-assigned ids; Save merges an
// item that already has a creation date.
type ItemRepository struct {
	Repository[entity.Item]
}

func NewItemRepository(s *Session) *ItemRepository {
	return &ItemRepository{Repository: NewRepository[entity.Item](s)}
}
