package database

import (
	"context"
	"database/sql"
)

// ColumnInfo is one row of PRAGMA table_info.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	Default    *string
	PrimaryKey bool
}

// TableInfo describes the physical columns of table, in column order. A table
// that does not exist yields no columns.
func (m *Manager) TableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	db, err := m.handle(ctx)
	if err != nil {
		return nil, err
	}

	statement := "PRAGMA table_info(" + QuoteIdentifier(table) + ")"
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, m.queryError(statement, err)
	}
	defer rows.Close()

	columns := make([]ColumnInfo, 0)
	for rows.Next() {
		var (
			cid     int
			col     ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, m.queryError(statement, err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.Default = &dflt.String
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// TableSQL returns the CREATE statement SQLite stored for table, or "" if the
// table does not exist.
func (m *Manager) TableSQL(ctx context.Context, table string) (string, error) {
	db, err := m.handle(ctx)
	if err != nil {
		return "", err
	}

	const statement = "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?"
	var stmt sql.NullString
	err = db.QueryRowContext(ctx, statement, table).Scan(&stmt)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", m.queryError(statement, err)
	}
	return stmt.String, nil
}
