// Package sqlite registers the pure-Go sqlite driver under the name
// "sqlite3" so the rest of the codebase can treat it like the cgo driver.
package sqlite

import (
	"database/sql"
	"fmt"

	"modernc.org/sqlite"
)

func init() {
	sql.Register("sqlite3", &sqlite.Driver{})
}

// MemoryDSN builds a shared in-memory DSN, usable for tests and local runs.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
}
