package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// openDB opens a database connection without pinging.
func openDB(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// Open returns an open and verified database connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MustOpen is Open for main: it exits the process on failure.
func MustOpen(dsn string) *sql.DB {
	db, err := Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return db
}
