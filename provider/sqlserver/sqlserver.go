// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package sqlserver is the provider for github.com/microsoft/go-mssqldb.
//
// Placeholders keep the @name form and are bound by name. Stored procedures
// are called with EXEC using named arguments,
//
//	EXEC [dbo].[add_person] @name = @name, @id = @id OUTPUT
//
// so that parameters with a declared default can be left out. Output
// parameters are bound with sql.Out and the return status with
// mssql.ReturnStatus.
//
// BulkCopy uses mssql.CopyIn. The configure callback receives the
// *mssql.BulkOptions used for the copy.
package sqlserver

import (
	"database/sql"
	"reflect"
	"strings"

	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/provider"
)

// DriverName is the database/sql driver name used by Open.
const DriverName = "sqlserver"

// ReturnValueName is the name of the derived parameter holding the return
// status of a procedure.
const ReturnValueName = "@RETURN_VALUE"

func init() {
	provider.Register(Provider)
}

// Provider is the SQL Server provider.
var Provider provider.Provider = sqlserverProvider{}

type sqlserverProvider struct{}

func (sqlserverProvider) Name() string {
	return "sqlserver"
}

func (sqlserverProvider) SupportedTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(&mssql.Driver{}),
		reflect.TypeOf(&mssql.Connector{}),
		reflect.TypeOf(&mssql.Conn{}),
	}
}

func (sqlserverProvider) Open(dsn string) (*sql.DB, error) {
	return sql.Open(DriverName, dsn)
}

func (sqlserverProvider) CloneParameter(cmd *provider.Command, p *provider.Parameter) (*provider.Parameter, error) {
	if err := provider.CheckParameter("sqlserver.CloneParameter", cmd, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func (sqlserverProvider) GenerateEmptySQL(cmd *provider.Command) (string, error) {
	const op = "sqlserver.GenerateEmptySQL"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", err
	}
	if cmd.Type == provider.StoredProcedure {
		return "", errors.New(errors.UnsupportedOperation, op, "cannot select the result shape of a stored procedure", errors.WithName(cmd.Text))
	}
	return provider.EmptyQuery(cmd.Text), nil
}

func (sqlserverProvider) IsXMLParameter(cmd *provider.Command, p *provider.Parameter) (bool, error) {
	if err := provider.CheckParameter("sqlserver.IsXMLParameter", cmd, p); err != nil {
		return false, err
	}
	return p.DBType == provider.XMLType || strings.EqualFold(p.TypeName, "xml") || provider.IsXMLValue(p.Value), nil
}

func (sqlserverProvider) IsXMLColumn(cmd *provider.Command, schema []provider.Column, index int) (bool, error) {
	if err := provider.CheckColumn("sqlserver.IsXMLColumn", cmd, schema, index); err != nil {
		return false, err
	}
	return strings.EqualFold(schema[index].DatabaseType, "XML"), nil
}

func (sqlserverProvider) TableSchemaSQL(table string) (string, error) {
	if table == "" {
		return "", errors.New(errors.ArgumentNull, "sqlserver.TableSchemaSQL", "table name is empty", errors.WithName("table"))
	}
	return "SELECT TOP 0 * FROM " + quote(table), nil
}

// NormalizeValue sends GUIDs as uniqueidentifier.
func (sqlserverProvider) NormalizeValue(p *provider.Parameter, v any) (any, error) {
	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case uuid.UUID:
		return mssql.UniqueIdentifier(v)
	case provider.XML:
		return string(v)
	}
	return v
}

func (sqlserverProvider) Render(cmd *provider.Command) (string, []any, error) {
	const op = "sqlserver.Render"
	if err := provider.CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	if cmd.Type != provider.StoredProcedure {
		return provider.RenderText(cmd, provider.AtNamed)
	}
	var (
		args  []any
		named []string
	)
	for _, p := range cmd.Parameters {
		name := provider.TrimPrefix(p.Name)
		if p.Direction == provider.ReturnValue {
			var status mssql.ReturnStatus
			args = append(args, sql.Named(name, &status))
			continue
		}
		if !p.Bound && p.Direction == provider.Input {
			continue
		}
		if p.IsOutput() {
			named = append(named, "@"+name+" = @"+name+" OUTPUT")
			dest, err := outDest(p)
			if err != nil {
				return "", nil, errors.Wrap(err, errors.ParameterBinding, op, "", errors.WithName(p.Name))
			}
			args = append(args, sql.Named(name, sql.Out{Dest: dest, In: p.Direction == provider.InputOutput && p.Bound}))
			continue
		}
		named = append(named, "@"+name+" = @"+name)
		args = append(args, sql.Named(name, p.Value))
	}
	query := "EXEC " + quote(cmd.Text)
	if len(named) > 0 {
		query += " " + strings.Join(named, ", ")
	}
	return query, args, nil
}

// outDest returns the output destination for p. GUIDs are received as
// uniqueidentifier.
func outDest(p *provider.Parameter) (any, error) {
	if p.DBType == provider.GUID {
		id := &mssql.NullUniqueIdentifier{}
		if v, ok := p.Value.(mssql.UniqueIdentifier); ok && p.Direction == provider.InputOutput && p.Bound {
			id.UUID, id.Valid = v, true
		}
		return id, nil
	}
	return provider.OutDest(p)
}

func quote(name string) string {
	return provider.QuoteIdentifier(name, "[", "]")
}
