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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/entity"
	"github.com/tomoncle/pagestore/types"
)

// seedTeamsAndMembers stores teamA{member1, member2}, teamB{member3} and a
// team-less member4.
func seedTeamsAndMembers(t *testing.T, ctx context.Context, teams *TeamRepository, members *MemberRepository) {
	t.Helper()
	teamA, teamB := entity.NewTeam("teamA"), entity.NewTeam("teamB")
	require.NoError(t, teams.SaveAll(ctx, teamA, teamB))
	require.NoError(t, members.SaveAll(ctx,
		entity.NewMember("member1", 10, teamA),
		entity.NewMember("member2", 20, teamA),
		entity.NewMember("member3", 30, teamB),
		entity.NewMember("member4", 40, nil),
	))
}

func TestMemberQueries(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		teams := NewTeamRepository(s)
		repo := NewMemberRepository(s)
		seedTeamsAndMembers(t, ctx, teams, repo)

		found, err := repo.FindByUsername(ctx, "member2")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, 20, found[0].Age)

		found, err = repo.FindByUsernameAndAgeGreaterThan(ctx, "member2", 15)
		require.NoError(t, err)
		assert.Len(t, found, 1)
		found, err = repo.FindByUsernameAndAgeGreaterThan(ctx, "member2", 20)
		require.NoError(t, err)
		assert.Empty(t, found)

		found, err = repo.FindUser(ctx, "member3", 30)
		require.NoError(t, err)
		assert.Len(t, found, 1)

		found, err = repo.FindByNames(ctx, []string{"member1", "member4", "nobody"})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		names, err := repo.FindUsernameList(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"member1", "member2", "member3", "member4"}, names)

		teamA, ok, err := teams.FindByName(ctx, "teamA")
		require.NoError(t, err)
		require.True(t, ok)
		found, err = repo.FindByTeam(ctx, teamA.ID)
		require.NoError(t, err)
		assert.Len(t, found, 2)

		_, ok, err = teams.FindByName(ctx, "teamZ")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := repo.Count(ctx, types.Criteria{}.IsNull("team_id"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		exists, err := repo.Exists(ctx, types.Criteria{}.Like("username", "member%"))
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestProjectionForms(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		seedTeamsAndMembers(t, ctx, NewTeamRepository(s), repo)
		managed := s.Size()

		for _, c := range []types.Criteria{{}, types.Criteria{}.Ge("m.age", 20), types.Criteria{}.Eq("t.name", "teamA")} {
			views, err := repo.FindMemberViews(ctx, c)
			require.NoError(t, err)
			dtos, err := repo.FindMemberDto(ctx, c)
			require.NoError(t, err)
			require.Len(t, dtos, len(views))
			for i, v := range views {
				assert.Equal(t, entity.NewMemberDto(v.ID, v.Username, v.TeamName), dtos[i])
			}
		}

		views, err := repo.FindMemberViews(ctx, types.Criteria{})
		require.NoError(t, err)
		require.Len(t, views, 4)
		assert.Equal(t, "teamA", views[0].TeamName)
		assert.Equal(t, "", views[3].TeamName)

		byName, err := repo.FindProjectionsByUsername(ctx, "member1")
		require.NoError(t, err)
		require.Len(t, byName, 1)
		dtos, err := repo.FindUsernameOnlyDto(ctx, "member1")
		require.NoError(t, err)
		require.Len(t, dtos, 1)
		assert.Equal(t, "member1", byName[0].GetUsername())
		assert.Equal(t, byName[0].GetUsername(), dtos[0].GetUsername())

		assert.Equal(t, managed, s.Size())
	})
}

func TestFetchConstructedConstructorError(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		seedTeamsAndMembers(t, ctx, NewTeamRepository(s), NewMemberRepository(s))

		errConvert := errors.New("cannot convert team_name")
		_, err := FetchConstructed(ctx, s.DB(), memberShape, types.Criteria{},
			func(scan func(dest ...any) error) (entity.MemberDto, error) {
				return entity.MemberDto{}, errConvert
			})
		require.Error(t, err)
		assert.ErrorIs(t, err, errConvert)
		var se *database.StorageError
		assert.False(t, errors.As(err, &se))
	})
}

func TestBulkAgePlus(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		members := seedMembers(t, ctx, repo, 10, 19, 20, 21, 40)

		n, err := repo.BulkAgePlus(ctx, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		stale, err := repo.FindByUsername(ctx, "member5")
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Same(t, members[4], stale[0])
		assert.Equal(t, 40, stale[0].Age)

		s.Clear()
		all, err := repo.FindAll(ctx, types.Criteria{}, types.SortBy("username")...)
		require.NoError(t, err)
		ages := make([]int, len(all))
		for i, m := range all {
			ages[i] = m.Age
		}
		assert.Equal(t, []int{10, 19, 21, 22, 41}, ages)
		assert.NotSame(t, members[4], all[4])
	})
}

func TestBulkIncrementStaleFlushKeepsIncrement(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		members := seedMembers(t, ctx, repo, 30)
		_, err := repo.BulkIncrement(ctx, "age", 5, types.Criteria{})
		require.NoError(t, err)
		members[0].Username = "renamed"
	})

	s := NewSession(db, testOptions()...)
	m, ok, err := NewMemberRepository(s).FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "renamed", m.Username)
	assert.Equal(t, 35, m.Age)
}

func TestFindReadOnlyIsNeverFlushed(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		seedMembers(t, ctx, NewMemberRepository(s), 10)
	})

	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		m, ok, err := repo.FindReadOnlyByUsername(ctx, "member1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, s.IsReadOnly(m))
		m.Username = "member2"
		m.Age = 99
		require.NoError(t, s.Flush(ctx))
	})

	s := NewSession(db, testOptions()...)
	found, err := NewMemberRepository(s).FindByUsername(context.Background(), "member1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 10, found[0].Age)
}

func TestFindReadOnlyReturnsManagedWritableInstance(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		members := seedMembers(t, ctx, repo, 10)

		m, ok, err := repo.FindReadOnlyByUsername(ctx, "member1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, members[0], m)
		assert.False(t, s.IsReadOnly(m))
		m.Age = 11
	})

	s := NewSession(db, testOptions()...)
	found, err := NewMemberRepository(s).FindByUsername(context.Background(), "member1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 11, found[0].Age)
}
