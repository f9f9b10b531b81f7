package db

import (
	"strconv"
	"strings"
)

// Dialect describes the placeholder style of the underlying driver.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

func DialectFor(driver string) Dialect {
	if driver == DriverPgx {
		return DialectPostgres
	}
	return DialectSQLite
}

// Rebind rewrites '?' placeholders into the dialect's style.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IDListSubquery selects the elements of one JSON array argument of integer
// ids. A single bind variable keeps large id sets under the driver's limit.
func (d Dialect) IDListSubquery() string {
	if d == DialectPostgres {
		return "SELECT jsonb_array_elements_text(?::jsonb)::bigint"
	}
	return "SELECT value FROM json_each(?)"
}
