package source

import (
	"context"
	"fmt"
)

// Open opens a source by type: "sqlite" (dsn is a file path) or "postgres".
func Open(ctx context.Context, typ, dsn string) (Source, error) {
	var (
		src *SQLSource
		err error
	)
	switch typ {
	case "sqlite", "":
		src, err = OpenSQLite(dsn)
	case "postgres":
		src, err = OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown source type: %s (valid options: sqlite, postgres)", typ)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}
