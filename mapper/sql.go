package mapper

import (
	"fmt"
	"strings"

	"modelkit/database"
	"modelkit/registry"
)

func createTableSQL(desc *registry.TableDescriptor) (string, error) {
	if len(desc.Fields) == 0 {
		return "", &registry.MappingError{Type: desc.TypeID,
			Err: fmt.Errorf("%w: table %q has no fields", registry.ErrInvalidDescriptor, desc.TableName)}
	}

	var keys []string
	for _, f := range desc.Fields {
		if f.PrimaryKey {
			keys = append(keys, database.QuoteIdentifier(f.Name))
		}
	}

	defs := make([]string, 0, len(desc.Fields)+1)
	for _, f := range desc.Fields {
		var b strings.Builder
		b.WriteString(database.QuoteIdentifier(f.Name))
		b.WriteString(" ")
		b.WriteString(string(f.Type))

		switch {
		case f.AutoIncrement:
			b.WriteString(" PRIMARY KEY AUTOINCREMENT")
		case f.PrimaryKey && len(keys) == 1:
			b.WriteString(" PRIMARY KEY")
		}
		if !f.Nullable && !f.AutoIncrement {
			b.WriteString(" NOT NULL")
		}
		if f.HasDefault {
			lit, err := database.EncodeLiteral(f.Default)
			if err != nil {
				return "", &registry.MappingError{Type: desc.TypeID, Field: f.Name, Err: err}
			}
			b.WriteString(" DEFAULT ")
			b.WriteString(lit)
		}
		defs = append(defs, b.String())
	}
	if len(keys) > 1 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		database.QuoteIdentifier(desc.TableName), strings.Join(defs, ",\n\t")), nil
}

func insertSQL(table string, columns []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + database.QuoteIdentifier(table) + " DEFAULT VALUES"
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = database.QuoteIdentifier(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		database.QuoteIdentifier(table), strings.Join(quoted, ", "), placeholders)
}

func selectAllSQL(table string) string {
	return "SELECT * FROM " + database.QuoteIdentifier(table)
}
