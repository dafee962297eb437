package sql

import (
	"fmt"
	"strings"
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name   string
	Driver string

	// numbered placeholders ($1) when true, otherwise ?.
	numbered bool
	// single-connection pools avoid SQLITE_BUSY on file databases.
	singleConn bool
}

var (
	// Postgres uses github.com/lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", numbered: true}
	// SQLite uses the cgo-free modernc.org/sqlite driver.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite", singleConn: true}
)

// DialectByName resolves a configured store driver.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect: %q", name)
	}
}

// bind rewrites ? placeholders into the dialect's form.
func (d Dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
