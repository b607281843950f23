package database

import (
	"context"
	"strings"
)

// Row is one result row keyed by column name. Values are whatever the driver
// returns: int64, float64, string, []byte, time.Time or nil.
type Row map[string]any

// Result describes a statement executed without a result set.
type Result struct {
	// LastInsertID is set after INSERT statements only.
	LastInsertID *int64
	RowsAffected int64
}

// ExecuteQuery runs a statement that returns rows. Parameters are bound to
// "?" placeholders by the driver. The database is opened if needed.
func (m *Manager) ExecuteQuery(ctx context.Context, statement string, params ...any) ([]Row, error) {
	db, err := m.handle(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, m.queryError(statement, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, m.queryError(statement, err)
	}

	// Initialize with empty slice to avoid returning nil
	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, m.queryError(statement, err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, m.queryError(statement, err)
	}

	return result, nil
}

// ExecuteStatement runs a statement that returns no rows. For INSERT
// statements the returned Result carries the new row id.
func (m *Manager) ExecuteStatement(ctx context.Context, statement string, params ...any) (Result, error) {
	db, err := m.handle(ctx)
	if err != nil {
		return Result{}, err
	}

	res, err := db.ExecContext(ctx, statement, params...)
	if err != nil {
		return Result{}, m.queryError(statement, err)
	}

	var out Result
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if isInsert(statement) {
		id, err := res.LastInsertId()
		if err != nil {
			return Result{}, m.queryError(statement, err)
		}
		out.LastInsertID = &id
	}
	return out, nil
}

func (m *Manager) queryError(statement string, err error) error {
	m.logger.Error("failed to execute statement", "statement", statement, "error", err)
	return &QueryError{Statement: statement, Err: err}
}

func isInsert(statement string) bool {
	s := strings.TrimSpace(statement)
	return len(s) >= 6 && strings.EqualFold(s[:6], "INSERT")
}
