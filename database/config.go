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
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "PAGESTORE"

var validate = validator.New()

// LoadConfig reads a configuration file (yaml, json or toml by extension).
// Keys can be overridden from the environment, e.g.
// PAGESTORE_CONNECTION_CONFIG_HOST overrides connection_config.host.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConnectionConfig()
	v.SetDefault("connection_config.max_idle_conns", defaults.MaxIdleConns)
	v.SetDefault("connection_config.max_open_conns", defaults.MaxOpenConns)
	v.SetDefault("connection_config.conn_max_lifetime", defaults.ConnMaxLifetime)
	v.SetDefault("connection_config.conn_max_idle_time", defaults.ConnMaxIdleTime)
	v.SetDefault("connection_config.connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("connection_config.read_timeout", defaults.ReadTimeout)
	v.SetDefault("connection_config.write_timeout", defaults.WriteTimeout)
	v.SetDefault("connection_config.enable_reconnect", defaults.EnableReconnect)
	v.SetDefault("connection_config.reconnect_interval", defaults.ReconnectInterval)
	v.SetDefault("connection_config.max_reconnect_tries", defaults.MaxReconnectTries)
	v.SetDefault("connection_config.health_check_interval", defaults.HealthCheckInterval)
	v.SetDefault("connection_config.slow_query_time", defaults.SlowQueryTime)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := ValidateConnectionConfig(&cfg.ConnectionConfig); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConnectionConfig checks the struct tags on ConnectionConfig.
func ValidateConnectionConfig(cfg *ConnectionConfig) error {
	if cfg == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid database configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}
