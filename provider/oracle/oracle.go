// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package oracle is the provider for github.com/sijms/go-ora/v2.
//
// Placeholders are rewritten to :name and bound by name. Stored procedures
// are called in an anonymous block using named notation,
//
//	BEGIN "HR"."ADD_PERSON"(P_NAME => :P_NAME, P_ID => :P_ID); END;
//
// so that parameters with a declared default can be left out. Functions
// assign their result to :RETURN_VALUE. Output parameters are bound with
// sql.Out.
//
// BulkCopy inserts rows with array binding, a batch of rows per execution,
// in a transaction the provider owns. It cannot run within an external
// transaction. The configure callback receives an *ArrayInsert.
package oracle

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/google/uuid"
	go_ora "github.com/sijms/go-ora/v2"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// DriverName is the database/sql driver name registered by go-ora.
const DriverName = "oracle"

// ReturnValueName is the name of the derived parameter holding the result
// of a function.
const ReturnValueName = "RETURN_VALUE"

func init() {
	provider.Register(Provider)
}

// Provider is the Oracle provider.
var Provider provider.Provider = oracleProvider{}

type oracleProvider struct{}

func (oracleProvider) Name() string {
	return "oracle"
}

func (oracleProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(&go_ora.OracleDriver{}),
		reflect.TypeOf(&go_ora.Connection{}),
	}
}

func (oracleProvider) Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

func (oracleProvider) CloneParameter(cmd *provider.Command, p *provider.Parameter) (*provider.Parameter, error) {
	if err := provider.CheckParameter("oracle.CloneParameter", cmd, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (oracleProvider) GenerateEmptySQL(cmd *provider.Command) (string, error) {
	const op = "oracle.GenerateEmptySQL"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", err
	}
	if cmd.Type == provider.StoredProcedure {
		return "", errors.New(errors.UnsupportedOperation, op, "cannot select the result shape of a stored procedure", errors.WithName(cmd.Text))
	}
	return provider.EmptyQuery(cmd.Text), nil
}

func (oracleProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	if err := provider.CheckParameter("oracle.IsXMLParameter", cmd, p); err != nil {
		return false, err
	}
	return p.DBType == provider.XMLType || isXMLType(p.TypeName) || provider.IsXMLValue(p.Value), nil
}

func (oracleProvider) IsXMLColumn(cmd *provider.Command, schema []provider.Column, index int) (bool, error) {
	if err := provider.CheckColumn("oracle.IsXMLColumn", cmd, schema, index); err != nil {
		return false, err
	}
	return isXMLType(schema[index].DatabaseType), nil
}

func isXMLType(name string) bool {
	return strings.EqualFold(name, "XMLTYPE") || strings.EqualFold(name, "SYS.XMLTYPE")
}

func (oracleProvider) TableSchemaSQL(table string) (string, error) {
	if table == "" {
		return "", errors.New(errors.ArgumentNull, "oracle.TableSchemaSQL", "table name is empty", errors.WithName("table"))
	}
	return "SELECT * FROM " + quoteName(table) + " WHERE 1 = 0", nil
}

// NormalizeValue sends GUIDs as RAW(16) and booleans as 1 or 0.
func (oracleProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case uuid.UUID:
		return v[:]
	case provider.XML:
		return string(v)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return v
}

func (oracleProvider) Render(cmd *provider.Command) (string, []any, error) {
	const op = "oracle.Render"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	if cmd.Type != provider.StoredProcedure {
		return provider.RenderText(cmd, provider.ColonNamed)
	}
	var (
		args   []any
		named  []string
		result string
	)
	for _, p := range cmd.Parameters {
		name := provider.TrimPrefix(p.Name)
		switch {
		case p.Direction == provider.ReturnValue:
			result = ":" + name + " := "
			out, err := provider.Out(name, p)
			if err != nil {
				return "", nil, errors.Wrap(err, errors.ParameterBinding, op, "", errors.WithName(p.Name))
			}
			args = append(args, out)
		case p.Direction == provider.Input && !p.Bound:
		case p.IsOutput():
			named = append(named, name+" => :"+name)
			out, err := provider.Out(name, p)
			if err != nil {
				return "", nil, errors.Wrap(err, errors.ParameterBinding, op, "", errors.WithName(p.Name))
			}
			args = append(args, out)
		default:
			named = append(named, name+" => :"+name)
			args = append(args, sql.Named(name, p.Value))
		}
	}
	call := quoteName(cmd.Text)
	if len(named) > 0 {
		call += "(" + strings.Join(named, ", ") + ")"
	}
	return "BEGIN " + result + call + "; END;", args, nil
}

// quoteName quotes a possibly schema qualified name, folding unquoted parts
// to upper case as Oracle does.
func quoteName(name string) string {
	owner, object := splitName(name)
	if owner == "" {
		return quote(object)
	}
	return quote(owner) + "." + quote(object)
}

// quote quotes a single unquoted name part.
func quote(part string) string {
	return `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
}
