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
	"github.com/tomoncle/pagestore/entity"
	"github.com/tomoncle/pagestore/types"
	"github.com/uptrace/bun"
)

// memberShape selects a member with the name of its team, if any. Criteria
// against it use the m and t aliases.
var memberShape = Shape{
	Table: "members AS m",
	Columns: []Column{
		{Expr: "m.id", Alias: "id"},
		{Expr: "m.username", Alias: "username"},
		{Expr: "t.name", Alias: "team_name"},
	},
	Joins: []Join{{Expr: "LEFT JOIN teams AS t ON t.id = m.team_id"}},
}

var usernameShape = Shape{
	Table:   "members AS m",
	Columns: []Column{{Expr: "m.username", Alias: "username"}},
}

// MemberRepository holds the member queries on top of the generic engine.
type MemberRepository struct {
	Repository[entity.Member]
}

func NewMemberRepository(s *Session) *MemberRepository {
	return &MemberRepository{Repository: NewRepository[entity.Member](s)}
}

func (r *MemberRepository) FindByUsername(ctx context.Context, username string) ([]*entity.Member, error) {
	return r.FindAll(ctx, types.Where("username", types.OpEq, username))
}

func (r *MemberRepository) FindByUsernameAndAgeGreaterThan(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.FindAll(ctx, types.Criteria{}.Eq("username", username).Gt("age", age))
}

// FindUser matches both username and age exactly.
func (r *MemberRepository) FindUser(ctx context.Context, username string, age int) ([]*entity.Member, error) {
	return r.FindAll(ctx, types.Criteria{}.Eq("username", username).Eq("age", age))
}

func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	return r.FindAll(ctx, types.Criteria{}.In("username", names))
}

func (r *MemberRepository) FindUsernameList(ctx context.Context) ([]string, error) {
	names := make([]string, 0)
	err := r.NewSelect().
		Model((*entity.Member)(nil)).
		Column("username").
		OrderExpr("? ASC", bun.Ident("member.id")).
		Scan(ctx, &names)
	return names, database.WrapStorageError("find members usernames", err)
}

func (r *MemberRepository) FindByTeam(ctx context.Context, teamID int64) ([]*entity.Member, error) {
	return r.FindAll(ctx, types.Criteria{}.Eq("team_id", teamID))
}

func (r *MemberRepository) FindPageByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.FetchPage(ctx, types.Criteria{}.Eq("age", age), page)
}

func (r *MemberRepository) FindSliceByAge(ctx context.Context, age int, page *types.PageRequest) (*types.Slice[entity.Member], error) {
	return r.FetchSlice(ctx, types.Criteria{}.Eq("age", age), page)
}

// FindAllPage loads members with their team joined in, counting without the
// join since every member appears exactly once either way.
func (r *MemberRepository) FindAllPage(ctx context.Context, page *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.FetchPage(ctx, types.Criteria{}, page,
		WithQuery(func(q *bun.SelectQuery) *bun.SelectQuery { return q.Relation("Team") }),
		WithCountQuery(func(q *bun.SelectQuery) *bun.SelectQuery { return q }),
	)
}

// BulkAgePlus increments the age of every member aged age or older. Members
// already loaded in the session keep their old age until it is cleared.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int64, error) {
	return r.BulkIncrement(ctx, "age", 1, types.Criteria{}.Ge("age", age))
}

func (r *MemberRepository) FindReadOnlyByUsername(ctx context.Context, username string) (*entity.Member, bool, error) {
	return r.FindReadOnly(ctx, types.Criteria{}.Eq("username", username))
}

func (r *MemberRepository) FindProjectionsByUsername(ctx context.Context, username string) ([]entity.UsernameOnly, error) {
	views, err := FetchProjection[entity.UsernameView](ctx, r.Session().DB(), usernameShape,
		types.Criteria{}.Eq("m.username", username), types.SortBy("m.id")...)
	if err != nil {
		return nil, err
	}
	out := make([]entity.UsernameOnly, len(views))
	for i, v := range views {
		out[i] = v
	}
	return out, nil
}

func (r *MemberRepository) FindUsernameOnlyDto(ctx context.Context, username string) ([]entity.UsernameOnlyDto, error) {
	return FetchConstructed(ctx, r.Session().DB(), usernameShape,
		types.Criteria{}.Eq("m.username", username), entity.ScanUsernameOnlyDto, types.SortBy("m.id")...)
}

// FindMemberViews returns id, username and team name for members matching c,
// whose fields use the m (member) and t (team) aliases.
func (r *MemberRepository) FindMemberViews(ctx context.Context, c types.Criteria) ([]entity.MemberView, error) {
	return FetchProjection[entity.MemberView](ctx, r.Session().DB(), memberShape, c, types.SortBy("m.id")...)
}

// FindMemberDto is the constructor form of FindMemberViews.
func (r *MemberRepository) FindMemberDto(ctx context.Context, c types.Criteria) ([]entity.MemberDto, error) {
	return FetchConstructed(ctx, r.Session().DB(), memberShape, c, entity.ScanMemberDto, types.SortBy("m.id")...)
}
