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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "db.yaml", `
connection_config:
  type: sqlite
  dbname: ":memory:"
  enable_query_log: true
  query_log_style: color
data_migrate_config:
  enable_migrate_on_startup: true
  enable_foreign_key: true
data_init_config:
  environment: test
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, ":memory:", cfg.ConnectionConfig.DBName)
	assert.Equal(t, "color", cfg.ConnectionConfig.QueryLogStyle)
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
	assert.True(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	assert.Equal(t, "test", cfg.DataInitConfig.Environment)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "db.yaml", `
connection_config:
  type: sqlite
  dbname: app
`)
	t.Setenv("PAGESTORE_CONNECTION_CONFIG_DBNAME", "override")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.ConnectionConfig.DBName)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, t.TempDir(), "db.yaml", `
connection_config:
  type: oracle
  dbname: app
`)
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Type failed on 'oneof'")
}

func TestValidateConnectionConfig(t *testing.T) {
	assert.Error(t, ValidateConnectionConfig(nil))

	cfg := DefaultConnectionConfig()
	cfg.Type = "postgres"
	cfg.DBName = "app"
	err := ValidateConnectionConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Host")

	cfg.Host = "localhost"
	cfg.Port = 5432
	assert.NoError(t, ValidateConnectionConfig(cfg))

	cfg.Type = "sqlite"
	cfg.Host = ""
	assert.NoError(t, ValidateConnectionConfig(cfg))

	cfg.QueryLogStyle = "fancy"
	assert.Error(t, ValidateConnectionConfig(cfg))
}
