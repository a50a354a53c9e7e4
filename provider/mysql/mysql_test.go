// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package mysql_test

import (
	"bytes"
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/sqlbind/provider"
	"github.com/canonical/sqlbind/provider/mysql"
)

var deriveColumns = []string{
	"ROUTINE_TYPE", "PARAMETER_NAME", "PARAMETER_MODE", "DATA_TYPE", "ORDINAL_POSITION",
	"CHARACTER_MAXIMUM_LENGTH", "NUMERIC_PRECISION", "NUMERIC_SCALE",
}

func TestDeriveAndRenderProcedure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.ROUTINES r")).
		WithArgs("add_person", "shop").
		WillReturnRows(sqlmock.NewRows(deriveColumns).
			AddRow("PROCEDURE", "p_name", "IN", "varchar", 1, 50, nil, nil).
			AddRow("PROCEDURE", "p_age", "IN", "int", 2, nil, 10, 0).
			AddRow("PROCEDURE", "p_id", "OUT", "bigint", 3, nil, 19, 0))

	cmd := &provider.Command{Text: "`shop`.add_person", Type: provider.StoredProcedure}
	require.NoError(t, mysql.Provider.DeriveParameters(context.Background(), db, cmd))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, cmd.Parameters, 3)
	assert.Equal(t, provider.String, cmd.Parameters[0].DBType)
	assert.Equal(t, int64(50), cmd.Parameters[0].Size)
	assert.Equal(t, provider.Int32, cmd.Parameters[1].DBType)
	assert.Equal(t, provider.Output, cmd.Parameters[2].Direction)

	cmd.Parameters[0].Value, cmd.Parameters[0].Bound = "Ann", true
	query, args, err := mysql.Provider.Render(cmd)
	require.NoError(t, err)
	assert.Equal(t, "CALL `shop`.`add_person`(?, ?, @_p_id)", query)
	// MySQL has no defaults, so the unbound age is NULL.
	assert.Equal(t, []any{"Ann", nil}, args)

	_, err = mysql.Provider.GenerateEmptySQL(cmd)
	assert.ErrorIs(t, err, provider.ErrUnsupportedOperation)
}

func TestDeriveAndRenderFunction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema").
		WillReturnRows(sqlmock.NewRows(deriveColumns).
			AddRow("FUNCTION", nil, nil, "int", 0, nil, 10, 0).
			AddRow("FUNCTION", "x", "IN", "int", 1, nil, 10, 0))

	cmd := &provider.Command{Text: "twice", Type: provider.StoredProcedure}
	require.NoError(t, mysql.Provider.DeriveParameters(context.Background(), db, cmd))
	require.Len(t, cmd.Parameters, 2)
	assert.Equal(t, "RETURN_VALUE", cmd.Parameters[0].Name)
	assert.Equal(t, provider.ReturnValue, cmd.Parameters[0].Direction)

	cmd.Parameters[1].Value, cmd.Parameters[1].Bound = 21, true
	query, args, err := mysql.Provider.Render(cmd)
	require.NoError(t, err)
	assert.Equal(t, "SELECT `twice`(?) AS `RETURN_VALUE`", query)
	assert.Equal(t, []any{21}, args)
}

func TestRenderInOutParameter(t *testing.T) {
	cmd := &provider.Command{Text: "bump", Type: provider.StoredProcedure, Derived: true, Parameters: []*provider.Parameter{
		{Name: "counter", DBType: provider.Int32, Direction: provider.InputOutput, Position: 1},
	}}
	query, args, err := mysql.Provider.Render(cmd)
	require.NoError(t, err)
	assert.Equal(t, "CALL `bump`(@_counter)", query)
	assert.Empty(t, args)

	cmd.Parameters[0].Value, cmd.Parameters[0].Bound = int32(41), true
	_, _, err = mysql.Provider.Render(cmd)
	assert.ErrorIs(t, err, provider.ErrUnsupportedOperation)
	assert.ErrorContains(t, err, "(counter)")
}

func TestDeriveNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("information_schema").WillReturnRows(sqlmock.NewRows(deriveColumns))
	err = mysql.Provider.DeriveParameters(context.Background(), db, &provider.Command{Text: "nope", Type: provider.StoredProcedure})
	assert.ErrorIs(t, err, provider.ErrProcedureNotFound)
}

func TestRenderText(t *testing.T) {
	cmd := &provider.Command{Text: "SELECT * FROM t WHERE a = @a OR b = @a", Parameters: []*provider.Parameter{
		{Name: "a", Value: 1, Bound: true},
	}}
	query, args, err := mysql.Provider.Render(cmd)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = ? OR b = ?", query)
	assert.Equal(t, []any{1, 1}, args)
}

func TestNeverXML(t *testing.T) {
	cmd := &provider.Command{Text: "SELECT doc FROM t"}
	isXML, err := mysql.Provider.IsXMLParameter(cmd, &provider.Parameter{Name: "doc", Value: provider.XML("<a/>")})
	require.NoError(t, err)
	assert.False(t, isXML)
	isXML, err = mysql.Provider.IsXMLColumn(cmd, []provider.Column{{Name: "doc", DatabaseType: "XML"}}, 0)
	require.NoError(t, err)
	assert.False(t, isXML)
}

func TestTableSchemaSQL(t *testing.T) {
	query, err := mysql.Provider.TableSchemaSQL("shop.person")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `shop`.`person` WHERE 1 = 0", query)
}

func TestLoadStatement(t *testing.T) {
	load := &mysql.Load{Table: "person", Columns: []string{"id", "name"}, CharacterSet: "utf8mb4", Replace: true}
	assert.Equal(t,
		"LOAD DATA LOCAL INFILE 'Reader::r1' REPLACE INTO TABLE `person` CHARACTER SET utf8mb4"+
			` FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '"' ESCAPED BY '\\' LINES TERMINATED BY '\n'`+
			" (`id`, `name`)",
		load.Statement("r1"))
}

func TestWriteCSV(t *testing.T) {
	when := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	rows := provider.NewSliceRows([]string{"a", "b", "c", "d"}, [][]any{
		{1, "plain", nil, true},
		{2.5, `back\slash, "quoted"`, when, false},
	})
	var buf bytes.Buffer
	require.NoError(t, mysql.WriteCSV(&buf, rows, 4))
	assert.Equal(t,
		"1,plain,\\N,1\n"+
			"2.5,\"back\\\\slash, \"\"quoted\"\"\",2024-02-03 04:05:06,0\n",
		buf.String())
}

func TestRegistered(t *testing.T) {
	db, err := sql.Open("mysql", "user@tcp(localhost:3306)/db")
	require.NoError(t, err)
	defer db.Close()
	p, err := provider.Default().Lookup(db)
	require.NoError(t, err)
	assert.Equal(t, mysql.Provider, p)
}
