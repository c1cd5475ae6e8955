package store

import "database/sql"

// DB exposes the connection to tests that need to corrupt or inspect rows
// directly.
func (s *Store) DB() *sql.DB {
	return s.db
}
