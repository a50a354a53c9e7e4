// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package mysql is the provider for github.com/go-sql-driver/mysql.
//
// Placeholders are rewritten to ?. Stored procedures are called with CALL
// and every IN parameter is passed: MySQL has no parameter defaults, so an
// unbound parameter is passed as NULL. OUT and INOUT parameters are passed
// as the session variables @_name and are not read back. A value bound to an
// INOUT parameter cannot be sent, so Render rejects it with
// ErrUnsupportedOperation. Stored functions are called with SELECT.
//
// MySQL has no XML type, so no parameter or column is classified as XML.
//
// BulkCopy streams rows as CSV through LOAD DATA LOCAL INFILE using a reader
// handler registered with the driver. The server must allow local_infile.
// The configure callback receives a *Load.
package mysql

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// DriverName is the database/sql driver name registered by the driver.
const DriverName = "mysql"

func init() {
	provider.Register(Provider)
}

// Provider is the MySQL provider.
var Provider provider.Provider = mysqlProvider{}

type mysqlProvider struct{}

func (mysqlProvider) Name() string {
	return "mysql"
}

func (mysqlProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(&mysql.MySQLDriver{}),
		reflect.TypeOf(mysql.MySQLDriver{}),
	}
}

func (mysqlProvider) Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

func (mysqlProvider) CloneParameter(cmd *provider.Command, p *provider.Parameter) (*provider.Parameter, error) {
	if err := provider.CheckParameter("mysql.CloneParameter", cmd, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (mysqlProvider) GenerateEmptySQL(cmd *provider.Command) (string, error) {
	const op = "mysql.GenerateEmptySQL"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", err
	}
	if cmd.Type == provider.StoredProcedure {
		return "", errors.New(errors.UnsupportedOperation, op, "cannot select the result shape of a stored procedure", errors.WithName(cmd.Text))
	}
	return provider.EmptyQuery(cmd.Text), nil
}

func (mysqlProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	if err := provider.CheckParameter("mysql.IsXMLParameter", cmd, p); err != nil {
		return false, err
	}
	return false, nil
}

func (mysqlProvider) IsXMLColumn(cmd *provider.Command, schema []provider.Column, index int) (bool, error) {
	if err := provider.CheckColumn("mysql.IsXMLColumn", cmd, schema, index); err != nil {
		return false, err
	}
	return false, nil
}

func (mysqlProvider) TableSchemaSQL(table string) (string, error) {
	if table == "" {
		return "", errors.New(errors.ArgumentNull, "mysql.TableSchemaSQL", "table name is empty", errors.WithName("table"))
	}
	return "SELECT * FROM " + quote(table) + " WHERE 1 = 0", nil
}

func (mysqlProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case uuid.UUID:
		return v.String()
	case provider.XML:
		return string(v)
	}
	return v
}

func (mysqlProvider) Render(cmd *provider.Command) (string, []any, error) {
	const op = "mysql.Render"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	if cmd.Type != provider.StoredProcedure {
		return provider.RenderText(cmd, provider.Question)
	}
	var (
		args         []any
		placeholders []string
		function     bool
	)
	for _, p := range cmd.Parameters {
		switch p.Direction {
		case provider.ReturnValue:
			function = true
		case provider.Input:
			placeholders = append(placeholders, "?")
			if p.Bound {
				args = append(args, p.Value)
			} else {
				args = append(args, nil)
			}
		case provider.InputOutput:
			if p.Bound {
				return "", nil, errors.New(errors.UnsupportedOperation, op, "cannot pass a value to an INOUT parameter", errors.WithName(p.Name))
			}
			placeholders = append(placeholders, sessionVariable(p))
		default:
			placeholders = append(placeholders, sessionVariable(p))
		}
	}
	call := quote(cmd.Text) + "(" + strings.Join(placeholders, ", ") + ")"
	if function {
		return "SELECT " + call + " AS `RETURN_VALUE`", args, nil
	}
	return "CALL " + call, args, nil
}

func sessionVariable(p *provider.Parameter) string {
	return "@_" + provider.TrimPrefix(p.Name)
}

func quote(name string) string {
	return provider.QuoteIdentifier(name, "`", "`")
}
