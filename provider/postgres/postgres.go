// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package postgres is the provider for PostgreSQL through either
// github.com/lib/pq or github.com/jackc/pgx/v5/stdlib.
//
// Placeholders are rewritten to $1, $2, ... Functions are called as set
// returning functions and procedures with CALL, both using named notation,
//
//	SELECT * FROM get_person(p_id => $1)
//	CALL transfer(p_from => $1, p_ref => NULL)
//
// so that parameters with a declared default can be left out. OUT
// parameters are returned as result columns; a procedure is passed NULL for
// each of them.
//
// BulkCopy uses COPY FROM STDIN: pq.CopyIn under lib/pq and Conn.CopyFrom
// under pgx. The configure callback receives a *Copy. Under pgx the copy
// cannot run within an external transaction.
package postgres

import (
	"database/sql"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// DriverName is the database/sql driver name used by Open.
const DriverName = "postgres"

func init() {
	provider.Register(Provider)
}

// Provider is the PostgreSQL provider.
var Provider provider.Provider = postgresProvider{}

type postgresProvider struct{}

func (postgresProvider) Name() string {
	return "postgres"
}

func (postgresProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(&pq.Driver{}),
		reflect.TypeOf(&pq.Connector{}),
		reflect.TypeOf(&stdlib.Driver{}),
		reflect.TypeOf(&stdlib.Conn{}),
	}
}

// Open opens a database with lib/pq. Use sql.Open("pgx", dsn) for pgx.
func (postgresProvider) Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

func (postgresProvider) CloneParameter(cmd *provider.Command, p *provider.Parameter) (*provider.Parameter, error) {
	if err := provider.CheckParameter("postgres.CloneParameter", cmd, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (postgresProvider) GenerateEmptySQL(cmd *provider.Command) (string, error) {
	const op = "postgres.GenerateEmptySQL"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", err
	}
	if cmd.Type != provider.StoredProcedure {
		return provider.EmptyQuery(cmd.Text), nil
	}
	if isProcedure(cmd) {
		return "", errors.New(errors.UnsupportedOperation, op, "cannot select the result shape of a procedure", errors.WithName(cmd.Text))
	}
	call, _, err := renderCall(cmd, func(_ int, p *provider.Parameter) string {
		return "@" + provider.TrimPrefix(p.Name)
	})
	if err != nil {
		return "", err
	}
	return call + " WHERE false", nil
}

func (postgresProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	if err := provider.CheckParameter("postgres.IsXMLParameter", cmd, p); err != nil {
		return false, err
	}
	return p.DBType == provider.XMLType || strings.EqualFold(p.TypeName, "xml") || provider.IsXMLValue(p.Value), nil
}

func (postgresProvider) IsXMLColumn(cmd *provider.Command, schema []provider.Column, index int) (bool, error) {
	if err := provider.CheckColumn("postgres.IsXMLColumn", cmd, schema, index); err != nil {
		return false, err
	}
	return strings.EqualFold(schema[index].DatabaseType, "xml"), nil
}

func (postgresProvider) TableSchemaSQL(table string) (string, error) {
	if table == "" {
		return "", errors.New(errors.ArgumentNull, "postgres.TableSchemaSQL", "table name is empty", errors.WithName("table"))
	}
	return "SELECT * FROM " + quoteName(table) + " WHERE false", nil
}

func (postgresProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
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

func (postgresProvider) Render(cmd *provider.Command) (string, []any, error) {
	const op = "postgres.Render"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	if cmd.Type != provider.StoredProcedure {
		return provider.RenderText(cmd, provider.Dollar)
	}
	var args []any
	call, params, err := renderCall(cmd, func(i int, p *provider.Parameter) string {
		return "$" + strconv.Itoa(i)
	})
	if err != nil {
		return "", nil, err
	}
	for _, p := range params {
		args = append(args, p.Value)
	}
	return call, args, nil
}

// renderCall returns the call of a stored procedure and the parameters
// passed to it in order. placeholder is called with the 1-based argument
// number of each parameter. Functions are called with SELECT and procedures
// with CALL, passing NULL for their OUT parameters.
func renderCall(cmd *provider.Command, placeholder func(i int, p *provider.Parameter) string) (string, []*provider.Parameter, error) {
	const op = "postgres.renderCall"
	procedure := isProcedure(cmd)
	var params []*provider.Parameter
	positional := false
	for _, p := range cmd.Parameters {
		if p.Direction == provider.Input || p.Direction == provider.InputOutput || procedure && p.Direction == provider.Output {
			params = append(params, p)
			if unnamed(p) {
				positional = true
			}
		}
	}
	// OUT arguments of a procedure are always passed, as NULL.
	passes := func(p *provider.Parameter) bool {
		return p.Bound || p.Direction == provider.Output
	}
	arg := func(p *provider.Parameter, passed *[]*provider.Parameter) string {
		if p.Direction == provider.Output {
			return "NULL"
		}
		*passed = append(*passed, p)
		return placeholder(len(*passed), p)
	}

	var args []string
	var passed []*provider.Parameter
	if positional {
		// Arguments cannot be left out before the last one passed.
		last := -1
		for i, p := range params {
			if passes(p) {
				last = i
			}
		}
		for i, p := range params[:last+1] {
			if !passes(p) {
				return "", nil, errors.New(errors.ParameterBinding, op, "unnamed parameters require a value for every argument before the last one bound", errors.WithName(strconv.Itoa(i+1)))
			}
			args = append(args, arg(p, &passed))
		}
	} else {
		for _, p := range params {
			if !passes(p) {
				continue
			}
			args = append(args, quote(provider.TrimPrefix(p.Name))+" => "+arg(p, &passed))
		}
	}
	call := quoteName(cmd.Text) + "(" + strings.Join(args, ", ") + ")"
	if procedure {
		return "CALL " + call, passed, nil
	}
	return "SELECT * FROM " + call, passed, nil
}

// isProcedure reports whether cmd calls a routine created with CREATE
// PROCEDURE.
func isProcedure(cmd *provider.Command) bool {
	return strings.EqualFold(cmd.Routine, "PROCEDURE")
}

// unnamed reports whether p was declared without a name. Such parameters
// are named after their position.
func unnamed(p *provider.Parameter) bool {
	_, err := strconv.Atoi(provider.TrimPrefix(p.Name))
	return err == nil
}

// quote quotes a single unquoted name part.
func quote(part string) string {
	return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
}

// quoteName quotes a possibly schema qualified name, folding unquoted parts
// to lower case as PostgreSQL does.
func quoteName(name string) string {
	schema, object := splitName(name)
	if schema == "" {
		return quote(object)
	}
	return quote(schema) + "." + quote(object)
}
