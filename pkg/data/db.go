package data

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName  string = "data.db"
	schemaVersion int    = 1

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")

	insertSchemaVersion = `INSERT INTO schema_version (version) VALUES (?)
		ON CONFLICT (version) DO NOTHING`
)

// Init creates the schema in the database at dsn. It is safe to call on an
// existing database.
func Init(dsn string) error {
	if dsn == "" {
		return errors.New("database DSN not specified")
	}

	db, err := GetDB(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}
	for _, stmt := range splitStatements(string(b)) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create database schema in %s: %w", redact(dsn), err)
		}
	}
	if _, err := db.Exec(rebind(db, insertSchemaVersion), schemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	slog.Debug("db schema ready", "version", schemaVersion)
	return nil
}

// GetDB opens the database at dsn: postgres for postgres:// URLs, sqlite
// for anything else.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverFor(dsn)
	if driver == driverSQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", redact(dsn), err)
	}
	if driver == driverSQLite {
		// sqlite allows a single writer
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

func driverFor(dsn string) string {
	d := strings.ToLower(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func isPostgres(db *sql.DB) bool {
	_, ok := db.Driver().(*pq.Driver)
	return ok
}

// rebind rewrites ? placeholders to $n for postgres.
func rebind(db *sql.DB, query string) string {
	if !isPostgres(db) {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitStatements(ddl string) []string {
	var out []string
	for _, s := range strings.Split(ddl, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// redact hides the password of a postgres URL.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
