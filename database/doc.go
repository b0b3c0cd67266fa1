// Package database provides connection management, migrations, foreign key
// handling, SQL initialization, configuration loading, storage error
// classification, logging and health checks built on top of Bun.
package database
