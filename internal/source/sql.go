package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// SQLSource reads records from the Frappe tables of a site database.
type SQLSource struct {
	db      *sql.DB
	dialect string
}

// Verify interface implementation at compile time
var _ Source = (*SQLSource)(nil)

// NewSQL wraps an open database. dialect is used in logs only.
func NewSQL(db *sql.DB, dialect string) *SQLSource {
	return &SQLSource{db: db, dialect: dialect}
}

// DB returns the underlying database handle.
func (s *SQLSource) DB() *sql.DB {
	return s.db
}

// Doctypes implements Source.
func (s *SQLSource) Doctypes() []string {
	names := make([]string, 0, len(Doctypes))
	for _, d := range Doctypes {
		names = append(names, d.Name)
	}
	return names
}

// Each implements Source.
func (s *SQLSource) Each(ctx context.Context, doctype string, fn func(Record) error) error {
	d, ok := LookupDoctype(doctype)
	if !ok {
		return unknownDoctype(doctype)
	}

	rows, err := s.db.QueryContext(ctx, selectQuery(d))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", d.Table, err)
	}
	defer func() { _ = rows.Close() }()

	count := 0
	for rows.Next() {
		var name, title, content, team, project, owner, modified sql.NullString
		if err := rows.Scan(&name, &title, &content, &team, &project, &owner, &modified); err != nil {
			return fmt.Errorf("failed to scan %s row: %w", d.Table, err)
		}
		rec := Record{
			Doctype:  d.Name,
			Name:     name.String,
			Title:    title.String,
			Content:  content.String,
			Team:     team.String,
			Project:  project.String,
			Owner:    owner.String,
			Modified: modified.String,
		}
		if err := fn(rec); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", d.Table, err)
	}

	slog.Debug("source_doctype_read",
		slog.String("dialect", s.dialect),
		slog.String("doctype", d.Name),
		slog.Int("records", count))
	return nil
}

// Close implements Source.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// selectQuery reads one doctype table. Double-quoted identifiers work in both
// SQLite and Postgres; table names contain spaces.
func selectQuery(d Doctype) string {
	cols := []string{"name", d.TitleColumn, d.ContentColumn, "team", "project", "owner", "modified"}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), quoteIdent(d.Table), quoteIdent("name"))
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
