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

package database

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN(t *testing.T) {
	cfg := &ConnectionConfig{
		Host: "db.local", Port: 3307, Username: "app", Password: "p@ss",
		DBName: "pages", ConnectTimeout: 5 * time.Second,
	}
	parsed, err := mysql.ParseDSN(mysqlDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db.local:3307", parsed.Addr)
	assert.Equal(t, "pages", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &ConnectionConfig{
		Host: "pg.local", Port: 5433, Username: "app", Password: "secret",
		DBName: "pages", ConnectTimeout: 10 * time.Second,
	}
	parsed, err := pgx.ParseConfig(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "pg.local", parsed.Host)
	assert.EqualValues(t, 5433, parsed.Port)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "secret", parsed.Password)
	assert.Equal(t, "pages", parsed.Database)
	assert.Equal(t, 10*time.Second, parsed.ConnectTimeout)
	assert.Contains(t, postgresDSN(cfg), "sslmode=disable")
}

func TestConnectUnsupportedType(t *testing.T) {
	dm := NewDatabaseManager(&ConnectionConfig{Type: "oracle", DBName: "x"})
	dm.SetLogger(NopLogger{})
	err := dm.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
