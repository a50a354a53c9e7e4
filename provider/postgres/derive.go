// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/canonical/sqlbind/provider"
)

const deriveQuery = `
SELECT r.specific_name, r.routine_type, p.parameter_name, p.parameter_mode, p.data_type, p.udt_name,
       p.ordinal_position, p.parameter_default IS NOT NULL,
       p.character_maximum_length, p.numeric_precision, p.numeric_scale
FROM information_schema.routines r
LEFT JOIN information_schema.parameters p
       ON p.specific_schema = r.specific_schema AND p.specific_name = r.specific_name
WHERE r.routine_name = $1 AND r.routine_schema = COALESCE(NULLIF($2, ''), current_schema())
ORDER BY r.specific_name, p.ordinal_position`

// DeriveParameters reads the parameters of a function or procedure from
// information_schema. Only the first overload, by specific name, is used.
// The routine type is kept so that procedures are called with CALL.
func (postgresProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	const op = "postgres.DeriveParameters"
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
		found       bool
		specific    string
		routineKind string
		params      []*provider.Parameter
	)
	for rows.Next() {
		var (
			specificName              string
			routineType               sql.NullString
			name, mode, dataType, udt sql.NullString
			position                  sql.NullInt64
			hasDefault                sql.NullBool
			length, precision, scale  sql.NullInt64
		)
		if err := rows.Scan(&specificName, &routineType, &name, &mode, &dataType, &udt, &position, &hasDefault, &length, &precision, &scale); err != nil {
			return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
		}
		if !found {
			found = true
			specific = specificName
			routineKind = strings.ToUpper(routineType.String)
		}
		if specificName != specific {
			break
		}
		if !position.Valid {
			// The routine has no parameters.
			continue
		}
		p := &provider.Parameter{
			Name:       name.String,
			TypeName:   dataType.String,
			DBType:     dbType(dataType.String, udt.String),
			Direction:  direction(mode.String),
			Size:       length.Int64,
			Precision:  precision.Int64,
			Scale:      scale.Int64,
			HasDefault: hasDefault.Bool,
			Position:   int(position.Int64),
		}
		if p.Name == "" {
			p.Name = "$" + strconv.Itoa(p.Position)
		}
		if dataType.String == "USER-DEFINED" || dataType.String == "ARRAY" {
			p.TypeName = udt.String
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
	cmd.Routine = routineKind
	cmd.Derived = true
	return nil
}

func direction(mode string) provider.Direction {
	switch strings.ToUpper(mode) {
	case "OUT":
		return provider.Output
	case "INOUT":
		return provider.InputOutput
	}
	return provider.Input
}

func dbType(dataType, udt string) provider.DBType {
	switch strings.ToLower(dataType) {
	case "boolean":
		return provider.Boolean
	case "smallint":
		return provider.Int16
	case "integer":
		return provider.Int32
	case "bigint":
		return provider.Int64
	case "real":
		return provider.Single
	case "double precision":
		return provider.Double
	case "numeric", "money":
		return provider.Decimal
	case "text", "character varying", "character", "name", "citext":
		return provider.String
	case "bytea":
		return provider.Binary
	case "date":
		return provider.Date
	case "timestamp without time zone", "timestamp with time zone":
		return provider.DateTime
	case "uuid":
		return provider.GUID
	case "xml":
		return provider.XMLType
	case "user-defined":
		if udt == "citext" {
			return provider.String
		}
	}
	return provider.Unknown
}

// splitName splits a possibly schema qualified name. Quoted parts are
// unquoted and other parts folded to lower case.
func splitName(name string) (schema, object string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 1 {
		return "", unquote(parts[0])
	}
	return unquote(parts[0]), unquote(parts[1])
}

func unquote(part string) string {
	if len(part) >= 2 && part[0] == '"' && part[len(part)-1] == '"' {
		return strings.ReplaceAll(part[1:len(part)-1], `""`, `"`)
	}
	return strings.ToLower(part)
}
