// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlserver

import (
	"context"
	"database/sql"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/canonical/sqlbind/provider"
)

const deriveQuery = `
SELECT o.type, p.name, TYPE_NAME(p.user_type_id), p.max_length, p.precision, p.scale,
       p.is_output, p.has_default_value, p.parameter_id
FROM sys.objects o
LEFT JOIN sys.parameters p ON p.object_id = o.object_id
WHERE o.object_id = OBJECT_ID(@name) AND o.type IN ('P', 'PC', 'FN', 'FS', 'IF', 'TF', 'FT')
ORDER BY p.parameter_id`

// DeriveParameters reads the parameters of a procedure or function from
// sys.parameters. Procedures get a leading return value parameter named
// @RETURN_VALUE.
func (sqlserverProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	const op = "sqlserver.DeriveParameters"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, deriveQuery, sql.Named("name", cmd.Text))
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
			objectType               string
			name, typeName           sql.NullString
			length, precision, scale sql.NullInt64
			isOutput, hasDefault     sql.NullBool
			id                       sql.NullInt64
		)
		if err := rows.Scan(&objectType, &name, &typeName, &length, &precision, &scale, &isOutput, &hasDefault, &id); err != nil {
			return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
		}
		if !found {
			found = true
			if t := strings.TrimSpace(objectType); t == "P" || t == "PC" {
				params = append(params, &provider.Parameter{
					Name:      ReturnValueName,
					TypeName:  "int",
					DBType:    provider.Int32,
					Direction: provider.ReturnValue,
				})
			}
		}
		if !id.Valid {
			continue
		}
		p := &provider.Parameter{
			Name:       name.String,
			TypeName:   typeName.String,
			DBType:     dbType(typeName.String),
			Direction:  provider.Input,
			Size:       length.Int64,
			Precision:  precision.Int64,
			Scale:      scale.Int64,
			HasDefault: hasDefault.Bool,
			Position:   int(id.Int64),
		}
		switch {
		case id.Int64 == 0:
			// The return value of a scalar function.
			p.Name = ReturnValueName
			p.Direction = provider.ReturnValue
		case isOutput.Bool:
			// T-SQL does not distinguish OUTPUT from INPUT OUTPUT.
			p.Direction = provider.InputOutput
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

func dbType(typeName string) provider.DBType {
	switch strings.ToLower(typeName) {
	case "bit":
		return provider.Boolean
	case "tinyint", "smallint":
		return provider.Int16
	case "int":
		return provider.Int32
	case "bigint":
		return provider.Int64
	case "real":
		return provider.Single
	case "float":
		return provider.Double
	case "decimal", "numeric", "money", "smallmoney":
		return provider.Decimal
	case "char", "varchar", "nchar", "nvarchar", "text", "ntext", "sysname":
		return provider.String
	case "binary", "varbinary", "image", "timestamp", "rowversion":
		return provider.Binary
	case "date":
		return provider.Date
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return provider.DateTime
	case "uniqueidentifier":
		return provider.GUID
	case "xml":
		return provider.XMLType
	}
	return provider.Unknown
}
