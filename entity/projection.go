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
	"database/sql"
)

// UsernameOnly is the closed view exposing just the username.
type UsernameOnly interface {
	GetUsername() string
}

// UsernameView is the field-subset form of UsernameOnly.
type UsernameView struct {
	Username string `bun:"username" json:"username"`
}

func (v UsernameView) GetUsername() string { return v.Username }

// MemberView is the field-subset projection of a member with its team name.
// TeamName is empty for members without a team.
type MemberView struct {
	ID       int64  `bun:"id" json:"id"`
	Username string `bun:"username" json:"username"`
	TeamName string `bun:"team_name" json:"team_name"`
}

// MemberDto is the constructor projection of the same columns as MemberView.
type MemberDto struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	TeamName string `json:"team_name"`
}

func NewMemberDto(id int64, username, teamName string) MemberDto {
	return MemberDto{ID: id, Username: username, TeamName: teamName}
}

// ScanMemberDto reads id, username and team_name in that order.
func ScanMemberDto(scan func(dest ...any) error) (MemberDto, error) {
	var (
		id       int64
		username string
		teamName sql.NullString
	)
	if err := scan(&id, &username, &teamName); err != nil {
		return MemberDto{}, err
	}
	return NewMemberDto(id, username, teamName.String), nil
}

// UsernameOnlyDto is the constructor form of UsernameOnly.
type UsernameOnlyDto struct {
	username string
}

func NewUsernameOnlyDto(username string) UsernameOnlyDto {
	return UsernameOnlyDto{username: username}
}

func (d UsernameOnlyDto) GetUsername() string { return d.username }

// ScanUsernameOnlyDto reads a single username column.
func ScanUsernameOnlyDto(scan func(dest ...any) error) (UsernameOnlyDto, error) {
	var username string
	if err := scan(&username); err != nil {
		return UsernameOnlyDto{}, err
	}
	return NewUsernameOnlyDto(username), nil
}
