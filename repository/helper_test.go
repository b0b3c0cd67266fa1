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
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/pagestore/database"
	"github.com/tomoncle/pagestore/entity"
	"github.com/uptrace/bun"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory SQLite database with the registered
// tables and foreign keys created.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	conn.HealthCheckInterval = 0

	dm := database.NewDatabaseManager(conn)
	dm.SetLogger(database.NopLogger{})
	dm.SetMigrateConfig(&database.Config{
		DataMigrateConfig: database.DataMigrateConfig{EnableForeignKey: true},
	})
	require.NoError(t, dm.Connect(ctx))
	t.Cleanup(func() { _ = dm.Disconnect() })
	require.NoError(t, dm.RunMigrations(ctx))
	return dm.GetDB()
}

func testOptions() []SessionOption {
	return []SessionOption{
		WithClock(func() time.Time { return testNow }),
		WithAuditor(entity.AuditorFunc(func() string { return "tester" })),
		WithLogger(database.NopLogger{}),
	}
}

// inSession runs fn in a committed unit of work and fails the test on error.
func inSession(t *testing.T, db *bun.DB, fn func(ctx context.Context, s *Session)) {
	t.Helper()
	err := RunInSession(context.Background(), db, func(ctx context.Context, s *Session) error {
		fn(ctx, s)
		return nil
	}, testOptions()...)
	require.NoError(t, err)
}

// seedMembers stores member1..memberN with the given ages.
func seedMembers(t *testing.T, ctx context.Context, repo *MemberRepository, ages ...int) []*entity.Member {
	t.Helper()
	members := make([]*entity.Member, len(ages))
	for i, age := range ages {
		members[i] = entity.NewMember(fmt.Sprintf("member%d", i+1), age, nil)
		require.NoError(t, repo.Save(ctx, members[i]))
	}
	return members
}

type countingHook struct {
	n atomic.Int32
}

func (h *countingHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	h.n.Add(1)
	return ctx
}

func (h *countingHook) AfterQuery(context.Context, *bun.QueryEvent) {}

func ids(members []*entity.Member) []int64 {
	out := make([]int64, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}
