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

	"github.com/tomoncle/pagestore/entity"
	"github.com/tomoncle/pagestore/types"
)

type TeamRepository struct {
	Repository[entity.Team]
}

func NewTeamRepository(s *Session) *TeamRepository {
	return &TeamRepository{Repository: NewRepository[entity.Team](s)}
}

func (r *TeamRepository) FindByName(ctx context.Context, name string) (*entity.Team, bool, error) {
	return r.FindOne(ctx, types.Where("name", types.OpEq, name))
}
