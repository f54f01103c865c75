package db

import "database/sql"

// DB wraps the SQL handle so store packages depend on one local type.
type DB struct {
	*sql.DB
}
