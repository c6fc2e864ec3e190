package database

import (
	"fmt"
	"net/url"

	coreconfig "github.com/m3rciful/copperbot/core/config"
)

// Dialect names a supported SQL engine.
type Dialect string

const (
	// Postgres uses lib/pq.
	Postgres Dialect = "postgres"
	// SQLite uses the pure-Go modernc driver.
	SQLite Dialect = "sqlite"
)

// Config describes one database connection.
type Config struct {
	Dialect        Dialect
	DSN            string
	MaxConnections int
	// Target is a password-free description of the DSN for logs.
	Target string
}

// PostgresConfig builds a Config from the postgres section of the bot config.
func PostgresConfig(c coreconfig.DatabaseConfig) Config {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return Config{
		Dialect:        Postgres,
		DSN:            u.String(),
		MaxConnections: c.MaxConnections,
		Target:         fmt.Sprintf("%s:%s/%s", c.Host, c.Port, c.Name),
	}
}

// SQLiteConfig builds a Config for a sqlite file. ":memory:" is accepted.
func SQLiteConfig(path string) Config {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	return Config{
		Dialect: SQLite,
		DSN:     dsn,
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		MaxConnections: 1,
		Target:         path,
	}
}
