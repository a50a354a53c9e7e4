// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package oracle

import (
	"context"
	"database/sql"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/canonical/sqlbind/provider"
)

const deriveQuery = `
SELECT ARGUMENT_NAME, POSITION, DATA_TYPE, IN_OUT, DATA_LENGTH, DATA_PRECISION, DATA_SCALE, DEFAULTED
FROM ALL_ARGUMENTS
WHERE OBJECT_NAME = :name AND OWNER = NVL(:owner, USER) AND PACKAGE_NAME IS NULL AND DATA_LEVEL = 0
ORDER BY POSITION`

// DeriveParameters reads the arguments of a standalone procedure or
// function from ALL_ARGUMENTS.
func (oracleProvider) DeriveParameters(ctx context.Context, q provider.Querier, cmd *provider.Command) error {
	const op = "oracle.DeriveParameters"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return err
	}
	owner, object := splitName(cmd.Text)
	rows, err := q.QueryContext(ctx, deriveQuery, sql.Named("name", object), sql.Named("owner", owner))
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
			name, dataType, inOut, defaulted sql.NullString
			position                         sql.NullInt64
			length, precision, scale         sql.NullInt64
		)
		if err := rows.Scan(&name, &position, &dataType, &inOut, &length, &precision, &scale, &defaulted); err != nil {
			return pkgerrors.Wrapf(err, "cannot derive parameters of %q", cmd.Text)
		}
		found = true
		p := &provider.Parameter{
			Name:       name.String,
			TypeName:   dataType.String,
			DBType:     dbType(dataType.String, scale),
			Direction:  direction(inOut.String),
			Size:       length.Int64,
			Precision:  precision.Int64,
			Scale:      scale.Int64,
			HasDefault: defaulted.String == "Y",
			Position:   int(position.Int64),
		}
		switch {
		case position.Int64 == 0:
			p.Name = ReturnValueName
			p.Direction = provider.ReturnValue
		case !name.Valid:
			// A procedure without arguments has a single placeholder row.
			continue
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

func direction(inOut string) provider.Direction {
	switch strings.ToUpper(inOut) {
	case "OUT":
		return provider.Output
	case "IN/OUT":
		return provider.InputOutput
	}
	return provider.Input
}

func dbType(dataType string, scale sql.NullInt64) provider.DBType {
	switch strings.ToUpper(dataType) {
	case "NUMBER", "INTEGER":
		if scale.Valid && scale.Int64 == 0 {
			return provider.Int64
		}
		return provider.Decimal
	case "PL/SQL BOOLEAN", "BOOLEAN":
		return provider.Boolean
	case "BINARY_FLOAT":
		return provider.Single
	case "BINARY_DOUBLE", "FLOAT":
		return provider.Double
	case "CHAR", "NCHAR", "VARCHAR2", "NVARCHAR2", "CLOB", "NCLOB", "LONG":
		return provider.String
	case "RAW", "BLOB", "LONG RAW":
		return provider.Binary
	case "DATE":
		return provider.Date
	case "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITH LOCAL TIME ZONE":
		return provider.DateTime
	case "XMLTYPE", "SYS.XMLTYPE", "OPAQUE/XMLTYPE":
		return provider.XMLType
	}
	return provider.Unknown
}

// splitName splits a possibly owner qualified name. Quoted parts are
// unquoted and other parts folded to upper case.
func splitName(name string) (owner, object string) {
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
	return strings.ToUpper(part)
}
