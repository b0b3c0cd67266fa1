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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/entity"
	"github.com/tomoncle/pagestore/types"
)

func TestSaveStampsAuditColumns(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		m := entity.NewMember("member1", 10, nil)
		require.NoError(t, repo.Save(ctx, m))
		assert.NotZero(t, m.ID)
		assert.True(t, s.Contains(m))
		assert.Equal(t, testNow, m.CreatedDate)
		assert.Equal(t, "tester", m.CreatedBy)
	})

	s := NewSession(db, testOptions()...)
	m, ok, err := NewMemberRepository(s).FindByID(context.Background(), int64(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, testNow.Equal(m.CreatedDate))
	assert.True(t, testNow.Equal(m.LastModifiedDate))
	assert.Equal(t, "tester", m.LastModifiedBy)
}

func TestFlushWritesOnlyDirtyColumns(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		seedMembers(t, ctx, NewMemberRepository(s), 10)
	})

	later := testNow.Add(time.Hour)
	err := RunInSession(context.Background(), db, func(ctx context.Context, s *Session) error {
		repo := NewMemberRepository(s)
		m, ok, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = s.DB().NewUpdate().Table("members").Set("username = ?", "changed elsewhere").Where("id = ?", 1).Exec(ctx)
		require.NoError(t, err)

		m.Age = 11
		return nil
	}, WithClock(func() time.Time { return later }), WithAuditor(entity.AuditorFunc(func() string { return "editor" })))
	require.NoError(t, err)

	s := NewSession(db, testOptions()...)
	m, ok, err := NewMemberRepository(s).FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 11, m.Age)
	assert.Equal(t, "changed elsewhere", m.Username)
	assert.True(t, later.Equal(m.LastModifiedDate))
	assert.True(t, testNow.Equal(m.CreatedDate))
	assert.Equal(t, "editor", m.LastModifiedBy)
	assert.Equal(t, "tester", m.CreatedBy)
}

func TestUnchangedInstancesAreNotWritten(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		seedMembers(t, ctx, NewMemberRepository(s), 10, 20)
	})

	hook := &countingHook{}
	db.AddQueryHook(hook)
	s := NewSession(db, testOptions()...)
	ctx := context.Background()
	_, err := NewMemberRepository(s).FindAll(ctx, types.Criteria{})
	require.NoError(t, err)
	require.NoError(t, s.Flush(ctx))
	assert.EqualValues(t, 1, hook.n.Load())
}

func TestFindByIDIdentityAndAbsence(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		seedMembers(t, ctx, repo, 10)
		s.Clear()

		a, ok, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		b, ok, err := repo.FindByID(ctx, int64(1))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, a, b)

		missing, ok, err := repo.FindByID(ctx, 42)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, missing)

		s.Detach(a)
		assert.False(t, s.Contains(a))
		c, _, err := repo.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.NotSame(t, a, c)
	})
}

func TestSaveMergesDetachedItem(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		item := entity.NewItem("A")
		assert.True(t, item.IsNew())
		require.NoError(t, NewItemRepository(s).Save(ctx, item))
		assert.False(t, item.IsNew())
	})

	later := testNow.Add(24 * time.Hour)
	err := RunInSession(context.Background(), db, func(ctx context.Context, s *Session) error {
		repo := NewItemRepository(s)
		detached := &entity.Item{ID: "A", BaseTimeEntity: entity.BaseTimeEntity{CreatedDate: testNow}}
		require.False(t, detached.IsNew())
		if err := repo.Save(ctx, detached); err != nil {
			return err
		}
		assert.True(t, s.Contains(detached))
		assert.True(t, later.Equal(detached.LastModifiedDate))
		return repo.Save(ctx, detached)
	}, WithClock(func() time.Time { return later }))
	require.NoError(t, err)

	s := NewSession(db, testOptions()...)
	repo := NewItemRepository(s)
	n, err := repo.Count(context.Background(), types.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	item, ok, err := repo.FindByID(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, testNow.Equal(item.CreatedDate))
	assert.True(t, later.Equal(item.LastModifiedDate))
}

func TestSaveCopiesDetachedStateOntoManagedInstance(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		repo := NewMemberRepository(s)
		members := seedMembers(t, ctx, repo, 10)

		detached := *members[0]
		detached.Age = 50
		require.NoError(t, repo.Save(ctx, &detached))
		assert.Equal(t, 50, members[0].Age)
		assert.False(t, s.Contains(&detached))
	})

	m, _, err := NewMemberRepository(NewSession(db, testOptions()...)).FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, m.Age)
}

func TestRunInSessionRollsBack(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("boom")
	err := RunInSession(context.Background(), db, func(ctx context.Context, s *Session) error {
		seedMembers(t, ctx, NewMemberRepository(s), 10, 20)
		return boom
	}, testOptions()...)
	assert.ErrorIs(t, err, boom)

	n, err := NewMemberRepository(NewSession(db, testOptions()...)).Count(context.Background(), types.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSaveValidationAndStorageErrors(t *testing.T) {
	db := newTestDB(t)
	s := NewSession(db, testOptions()...)
	repo := NewMemberRepository(s)
	ctx := context.Background()

	err := repo.Save(ctx, entity.NewMember("", 10, nil))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	err = repo.Save(ctx, entity.NewMember("member1", -1, nil))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, repo.Save(ctx, nil), ErrInvalidArgument)

	ghost := entity.NewTeam("ghost")
	ghost.ID = 999
	err = repo.Save(ctx, entity.NewMember("member1", 10, ghost))
	require.Error(t, err)
	var se *database.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, database.ForeignKeyViolationErr, se.Kind)
	assert.Equal(t, 0, s.Size())
}

func TestDeleteDetaches(t *testing.T) {
	db := newTestDB(t)
	inSession(t, db, func(ctx context.Context, s *Session) {
		teams := NewTeamRepository(s)
		members := NewMemberRepository(s)
		seedTeamsAndMembers(t, ctx, teams, members)

		teamA, _, err := teams.FindByName(ctx, "teamA")
		require.NoError(t, err)
		require.NoError(t, teams.Delete(ctx, teamA))
		assert.False(t, s.Contains(teamA))

		s.Clear()
		orphans, err := members.FindAll(ctx, types.Criteria{}.IsNull("team_id"))
		require.NoError(t, err)
		assert.Len(t, orphans, 3)
	})
}
