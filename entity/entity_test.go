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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/pagestore/database"
)

func TestAuditHooks(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	m := NewMember("member1", 10, nil)
	var a Auditable = m
	a.PrePersist(created, "alice")
	assert.Equal(t, created, m.CreatedDate)
	assert.Equal(t, created, m.LastModifiedDate)
	assert.Equal(t, "alice", m.CreatedBy)

	a.PreUpdate(updated, "bob")
	assert.Equal(t, created, m.CreatedDate)
	assert.Equal(t, updated, m.LastModifiedDate)
	assert.Equal(t, "alice", m.CreatedBy)
	assert.Equal(t, "bob", m.LastModifiedBy)
}

func TestIsNew(t *testing.T) {
	team := NewTeam("teamA")
	assert.True(t, team.IsNew())
	team.ID = 7

	m := NewMember("member1", 10, team)
	assert.True(t, m.IsNew())
	require.NotNil(t, m.TeamID)
	assert.EqualValues(t, 7, *m.TeamID)
	m.ChangeTeam(nil)
	assert.Nil(t, m.TeamID)

	item := NewItem("A")
	assert.True(t, item.IsNew())
	item.PrePersist(time.Now(), "")
	assert.False(t, item.IsNew())
}

func TestRandomAuditorIsStable(t *testing.T) {
	p := RandomAuditor()
	assert.Len(t, p.CurrentAuditor(), 36)
	assert.Equal(t, p.CurrentAuditor(), p.CurrentAuditor())
	assert.NotEqual(t, p.CurrentAuditor(), RandomAuditor().CurrentAuditor())
}

func TestScanConstructors(t *testing.T) {
	dto, err := ScanMemberDto(func(dest ...any) error {
		*dest[0].(*int64) = 3
		*dest[1].(*string) = "member3"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, NewMemberDto(3, "member3", ""), dto)

	_, err = ScanUsernameOnlyDto(func(dest ...any) error { return errors.New("scan") })
	assert.Error(t, err)

	var view UsernameOnly = UsernameView{Username: "x"}
	assert.Equal(t, view.GetUsername(), NewUsernameOnlyDto("x").GetUsername())
}

func TestModelsRegistered(t *testing.T) {
	models := database.RegisteredModelInstances()
	require.Len(t, models, 3)
	assert.IsType(t, (*Team)(nil), models[0])
	assert.IsType(t, (*Member)(nil), models[1])
	assert.IsType(t, (*Item)(nil), models[2])
}
