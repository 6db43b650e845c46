package sqlstore

import (
	"context"
	_ "embed"
	"strings"
)

var (
	//go:embed schema_mysql.sql
	mysqlSchema string
	//go:embed schema_postgres.sql
	postgresSchema string
)

func (d Dialect) schema() string {
	if d.Name == Postgres.Name {
		return postgresSchema
	}
	return mysqlSchema
}

// Migrate creates missing tables. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(s.d.schema()) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap(err)
		}
	}
	return nil
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
