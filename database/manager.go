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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	migrate         *Config
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{}
	healthCheckOnce sync.Once
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	return &defaultDatabaseManager{
		config:          config,
		healthStatus:    &HealthStatus{},
		stopHealthCheck: make(chan struct{}, 1),
		logger:          GetLogger(),
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		_ = dm.db.Close()
		dm.db, dm.sqlDB = nil, nil
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if isSQLite(dm.config.Type) {
		if _, err := dm.db.ExecContext(ctxTimeout, "PRAGMA foreign_keys = ON"); err != nil && dm.logger != nil {
			dm.logger.Warn("Failed to enable SQLite foreign keys", "error", err)
		}
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected successfully", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

func isSQLite(typ string) bool {
	return typ == "sqlite" || typ == "sqlite3"
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	sqlDB, dialect, err := dm.openSQLDB()
	if err != nil {
		return nil, nil, err
	}
	db := bun.NewDB(sqlDB, dialect)

	if dm.config.EnableQueryLog {
		if dm.config.QueryLogStyle == "color" {
			db.AddQueryHook(NewQueryHook(nil, true))
		} else {
			db.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithVerbose(true),
				bundebug.FromEnv("BUNDEBUG"),
			))
		}
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{slowTime: dm.config.SlowQueryTime, logger: dm.logger})
	}
	return sqlDB, db, nil
}

// openSQLDB opens the driver selected by the configured type: MySQL,
// Postgres through lib/pq ("postgres", "postgresql") or pgx ("pgx"), SQLite.
func (dm *defaultDatabaseManager) openSQLDB() (*sql.DB, schema.Dialect, error) {
	switch dm.config.Type {
	case "mysql":
		sqlDB, err := sql.Open("mysql", mysqlDSN(dm.config))
		return sqlDB, mysqldialect.New(), err
	case "postgres", "postgresql":
		sqlDB, err := sql.Open("postgres", postgresDSN(dm.config))
		return sqlDB, pgdialect.New(), err
	case "pgx":
		connConfig, err := pgx.ParseConfig(postgresDSN(dm.config))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid pgx configuration: %w", err)
		}
		return stdlib.OpenDB(*connConfig), pgdialect.New(), nil
	case "sqlite", "sqlite3":
		dsn := sqliteDSN(dm.config.DBName)
		if isMemoryDSN(dsn) {
			// every connection to a private in-memory database sees its own copy
			dm.config.MaxOpenConns = 1
			dm.config.MaxIdleConns = 1
			dm.config.ConnMaxLifetime = 0
			dm.config.ConnMaxIdleTime = 0
		}
		sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
		return sqlDB, sqlitedialect.New(), err
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
}

func mysqlDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// postgresDSN renders a URL accepted by both lib/pq and pgx.
func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
		RawQuery: url.Values{
			"sslmode":         {sslMode},
			"connect_timeout": {strconv.Itoa(int(cfg.ConnectTimeout.Seconds()))},
		}.Encode(),
	}
	return u.String()
}

func sqliteDSN(name string) string {
	switch {
	case name == ":memory:":
		return "file::memory:?cache=shared"
	case strings.HasPrefix(name, "file:"):
		return name
	default:
		return fmt.Sprintf("%s.db", name)
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}
	dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	// non-blocking: the watcher may never have started
	select {
	case dm.stopHealthCheck <- struct{}{}:
	default:
	}
	return dm.closeLocked()
}

func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB, dm.connected = nil, nil, false

	switch {
	case dm.logger == nil:
	case err != nil:
		dm.logger.Error("Failed to close database connection", "error", err)
	default:
		dm.logger.Info("Database connection closed")
	}
	return err
}

// Reconnect drops the current pool and opens a new one. It leaves the
// health watcher running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	if err := dm.closeLocked(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	dm.mu.Unlock()
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	if db := dm.GetDB(); db != nil {
		return db.PingContext(ctx)
	}
	return fmt.Errorf("database not connected")
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings with a five second budget and records the outcome
// along with the pool occupancy.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	status := &HealthStatus{LastCheckTime: time.Now(), Connected: dm.connected}
	defer func() {
		dm.healthStatus = status
		dm.lastHealthCheck = status.LastCheckTime
	}()
	if dm.db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	dm.lastError = dm.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(status.LastCheckTime)
	status.Healthy = dm.lastError == nil
	status.Connected = status.Healthy
	if dm.lastError != nil {
		status.LastError = dm.lastError.Error()
	}

	pool := dm.sqlDB.Stats()
	status.ActiveConns, status.IdleConns, status.MaxOpenConns = pool.InUse, pool.Idle, pool.MaxOpenConnections
	return status
}

func (dm *defaultDatabaseManager) startHealthCheck() {
	dm.healthCheckOnce.Do(func() { go dm.watchHealth(dm.config.HealthCheckInterval) })
}

func (dm *defaultDatabaseManager) watchHealth(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-dm.stopHealthCheck:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		healthy := dm.HealthCheck(ctx).Healthy
		cancel()
		if !healthy && dm.config.EnableReconnect {
			dm.reconnectWithBackoff()
		}
	}
}

// reconnectWithBackoff retries up to MaxReconnectTries times, doubling the
// wait after every failure.
func (dm *defaultDatabaseManager) reconnectWithBackoff() {
	wait := dm.config.ReconnectInterval
	for dm.reconnectTries < dm.config.MaxReconnectTries {
		dm.reconnectTries++
		if dm.logger != nil {
			dm.logger.Info("Starting database reconnect", "try", dm.reconnectTries, "wait", wait)
		}
		time.Sleep(wait)

		ctx, cancel := context.WithTimeout(context.Background(), dm.config.ConnectTimeout)
		err := dm.Reconnect(ctx)
		cancel()
		if err == nil {
			if dm.logger != nil {
				dm.logger.Info("Reconnect succeeded")
			}
			return
		}
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", dm.reconnectTries)
		}
		wait *= 2
	}
	if dm.logger != nil {
		dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.reconnectTries)
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	return statsOf(sqlDB.Stats())
}

func statsOf(s sql.DBStats) *DBStats {
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// SetMigrateConfig supplies the migration and seed settings used by
// RunMigrations and InitData.
func (dm *defaultDatabaseManager) SetMigrateConfig(cfg *Config) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.migrate = cfg
}

func (dm *defaultDatabaseManager) migrationManager() (*MigrationManager, error) {
	db := dm.GetDB()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	dm.mu.RLock()
	cfg := dm.migrate
	dm.mu.RUnlock()
	return NewMigrationManager(db, dm.logger, cfg), nil
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	mm, err := dm.migrationManager()
	if err != nil {
		return err
	}
	return mm.RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	mm, err := dm.migrationManager()
	if err != nil {
		return err
	}
	return mm.InitData(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
