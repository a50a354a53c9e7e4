// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package mysql

import (
	"context"
	"database/sql"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/canonical/sqlbind/provider"
)

const deriveQuery = `
SELECT r.ROUTINE_TYPE, p.PARAMETER_NAME, p.PARAMETER_MODE, p.DATA_TYPE, p.ORDINAL_POSITION,
       p.CHARACTER_MAXIMUM_LENGTH, p.NUMERIC_PRECISION, p.NUMERIC_SCALE
FROM information_schema.ROUTINES r
LEFT JOIN information_schema.PARAMETERS p
       ON p.SPECIFIC_SCHEMA = r.ROUTINE_SCHEMA AND p.SPECIFIC_NAME = r.SPECIFIC_NAME
WHERE r.ROUTINE_NAME = ? AND r.ROUTINE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
ORDER BY p.ORDINAL_POSITION`

// DeriveParameters reads the parameters of a procedure or function from
// information_schema.
func (mysqlProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	const op = "mysql.DeriveParameters"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return err
	}
	schema, routine := splitName(cmd.Text)
	rows, err := q.QueryContext(ctx, deriveQuery, routine, schema)
	if err != nil {
		return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
	}
	defer rows.Close()

	var (
		found  bool
		params []*provider.Parameter
	)
	for rows.Next() {
		var (
			routineType              string
			name, mode, dataType     sql.NullString
			position                 sql.NullInt64
			length, precision, scale sql.NullInt64
		)
		if err := rows.Scan(&routineType, &name, &mode, &dataType, &position, &length, &precision, &scale); err != nil {
			return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
		}
		found = true
		if !position.Valid {
			continue
		}
		p := &provider.Parameter{
			Name:      name.String,
			TypeName:  dataType.String,
			DBType:    dbType(dataType.String),
			Direction: direction(mode),
			Size:      length.Int64,
			Precision: precision.Int64,
			Scale:     scale.Int64,
			Position:  int(position.Int64),
		}
		if p.Position == 0 {
			p.Name = "RETURN_VALUE"
		}
		params = append(params, p)
	}
	if err := rows.Err(); err != nil {
		return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
	}
	if !found {
		return provider.ProcedureNotFound(op, cmd.Text)
	}
	cmd.Parameters = params
	cmd.Derived = true
	return nil
}

// direction maps PARAMETER_MODE. The return value of a function has no mode.
func direction(mode sql.NullString) provider.Direction {
	if !mode.Valid {
		return provider.ReturnValue
	}
	switch strings.ToUpper(mode.String) {
	case "OUT":
		return provider.Output
	case "INOUT":
		return provider.InputOutput
	}
	return provider.Input
}

func dbType(dataType string) provider.DBType {
	switch strings.ToLower(dataType) {
	case "bit", "bool", "boolean":
		return provider.Boolean
	case "tinyint", "smallint":
		return provider.Int16
	case "mediumint", "int", "integer":
		return provider.Int32
	case "bigint":
		return provider.Int64
	case "float":
		return provider.Single
	case "double", "real":
		return provider.Double
	case "decimal", "numeric":
		return provider.Decimal
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set", "json":
		return provider.String
	case "binary", "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		return provider.Binary
	case "date":
		return provider.Date
	case "datetime", "timestamp":
		return provider.DateTime
	}
	return provider.Unknown
}

// splitName splits a possibly schema qualified name and removes backtick
// quoting.
func splitName(name string) (schema, object string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 1 {
		return "", unquote(parts[0])
	}
	return unquote(parts[0]), unquote(parts[1])
}

func unquote(part string) string {
	if len(part) >= 2 && part[0] == '`' && part[len(part)-1] == '`' {
		return strings.ReplaceAll(part[1:len(part)-1], "``", "`")
	}
	return part
}
