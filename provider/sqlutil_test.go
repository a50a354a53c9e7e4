// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider_test

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/sqlbind/provider"
)

func textCommand(text string, params ...*provider.Parameter) *provider.Command {
	return &provider.Command{Text: text, Type: provider.Text, Parameters: params}
}

func TestRenderText(t *testing.T) {
	cmd := textCommand(
		"SELECT * FROM t WHERE a = @a AND b = @B AND c = @a AND d = '@b'",
		&provider.Parameter{Name: "A", Value: 1, Bound: true},
		&provider.Parameter{Name: "b", Value: "x", Bound: true},
	)
	tests := []struct {
		style provider.PlaceholderStyle
		sql   string
		args  []any
	}{{
		style: provider.AtNamed,
		sql:   "SELECT * FROM t WHERE a = @A AND b = @b AND c = @A AND d = '@b'",
		args:  []any{sql.Named("A", 1), sql.Named("b", "x")},
	}, {
		style: provider.ColonNamed,
		sql:   "SELECT * FROM t WHERE a = :A AND b = :b AND c = :A AND d = '@b'",
		args:  []any{sql.Named("A", 1), sql.Named("b", "x")},
	}, {
		style: provider.Dollar,
		sql:   "SELECT * FROM t WHERE a = $1 AND b = $2 AND c = $1 AND d = '@b'",
		args:  []any{1, "x"},
	}, {
		style: provider.Question,
		sql:   "SELECT * FROM t WHERE a = ? AND b = ? AND c = ? AND d = '@b'",
		args:  []any{1, "x", 1},
	}}
	for _, test := range tests {
		query, args, err := provider.RenderText(cmd, test.style)
		require.NoError(t, err)
		assert.Equal(t, test.sql, query)
		assert.Equal(t, test.args, args)
	}
}

func TestRenderTextMissingParameter(t *testing.T) {
	cmd := textCommand("SELECT @a, @b", &provider.Parameter{Name: "a", Value: 1, Bound: true})
	_, _, err := provider.RenderText(cmd, provider.Question)
	assert.ErrorIs(t, err, provider.ErrParameterBinding)
	assert.Contains(t, err.Error(), "(b)")

	_, _, err = provider.RenderText(nil, provider.Question)
	assert.ErrorIs(t, err, provider.ErrArgumentNull)
}

func TestRenderTextNull(t *testing.T) {
	cmd := textCommand("SELECT @a", &provider.Parameter{Name: "a", Bound: true})
	_, args, err := provider.RenderText(cmd, provider.Dollar)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, args)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"person"`, provider.QuoteIdentifier("person", `"`, `"`))
	assert.Equal(t, `"dbo"."per""son"`, provider.QuoteIdentifier(`dbo.per"son`, `"`, `"`))
	assert.Equal(t, "[dbo].[person]", provider.QuoteIdentifier("[dbo].person", "[", "]"))
	assert.Equal(t, "`a``b`", provider.QuoteIdentifier("a`b", "`", "`"))
	assert.Equal(t, `"per""son"`, provider.QuoteIdentifier(`"per""son"`, `"`, `"`))
	assert.Equal(t, "[a]]b]", provider.QuoteIdentifier("[a]]b]", "[", "]"))

	// Quotes inside a quoted part that are not doubled are escaped.
	assert.Equal(t, `"""people"" WHERE 1=1; DROP TABLE people; --"""`,
		provider.QuoteIdentifier(`"people" WHERE 1=1; DROP TABLE people; --"`, `"`, `"`))
	assert.Equal(t, "[[x]]; DROP TABLE t; --]]]", provider.QuoteIdentifier("[x]; DROP TABLE t; --]", "[", "]"))
	assert.Equal(t, `""""`, provider.QuoteIdentifier(`"`, `"`, `"`))
}

func TestEmptyQuery(t *testing.T) {
	assert.Equal(t, "SELECT * FROM (SELECT @a AS a) q WHERE 1 = 0", provider.EmptyQuery(" SELECT @a AS a; "))
}

func TestCommandParameter(t *testing.T) {
	cmd := textCommand("", &provider.Parameter{Name: "@Id"}, &provider.Parameter{Name: "name"})
	p, ok := cmd.Parameter("id")
	require.True(t, ok)
	assert.Equal(t, "@Id", p.Name)
	p, ok = cmd.Parameter(":NAME")
	require.True(t, ok)
	assert.Equal(t, "name", p.Name)
	_, ok = cmd.Parameter("other")
	assert.False(t, ok)
}

func TestCallParameters(t *testing.T) {
	cmd := &provider.Command{Type: provider.StoredProcedure, Parameters: []*provider.Parameter{
		{Name: "ret", Direction: provider.ReturnValue},
		{Name: "a", Direction: provider.Input, Bound: true},
		{Name: "b", Direction: provider.Input},
		{Name: "c", Direction: provider.Input, Bound: true, Value: nil},
		{Name: "d", Direction: provider.Output},
	}}
	var names []string
	for _, p := range provider.CallParameters(cmd) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestParameterClone(t *testing.T) {
	p := &provider.Parameter{Name: "data", Value: []byte("abc"), Bound: true}
	c := p.Clone()
	c.Value.([]byte)[0] = 'x'
	c.Name = "other"
	assert.Equal(t, []byte("abc"), p.Value)
	assert.Equal(t, "data", p.Name)
}

func TestSliceRows(t *testing.T) {
	rows := provider.NewSliceRows([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)
	require.True(t, rows.Next())
	vals, err := rows.Values()
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, vals)
	require.True(t, rows.Next())
	_, err = rows.Values()
	assert.ErrorContains(t, err, "row 2 has 1 values")
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Err())
}

func TestDestinationColumns(t *testing.T) {
	rows := provider.NewSliceRows([]string{"a"}, nil)
	cols, err := provider.DestinationColumns("test", rows, provider.BulkOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cols)

	cols, err = provider.DestinationColumns("test", rows, provider.BulkOptions{Columns: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, cols)

	_, err = provider.DestinationColumns("test", nil, provider.BulkOptions{})
	assert.ErrorIs(t, err, provider.ErrArgumentNull)
}

func TestRejectExternalTx(t *testing.T) {
	var tx *sql.Tx
	assert.NoError(t, provider.RejectExternalTx("test", "oracle", tx))
	assert.ErrorIs(t, provider.RejectExternalTx("test", "oracle", &sql.Tx{}), provider.ErrUnsupportedOperation)
}

func TestParseCache(t *testing.T) {
	const text = "SELECT * FROM person WHERE id = @id -- cached"
	first, err := provider.Parse(text)
	require.NoError(t, err)
	again, err := provider.Parse(text)
	require.NoError(t, err)
	assert.Same(t, first, again)

	// The least recently used texts are dropped once the cache is full.
	for i := 0; i < 2048; i++ {
		_, err := provider.Parse("SELECT @n" + strconv.Itoa(i))
		require.NoError(t, err)
	}
	again, err = provider.Parse(text)
	require.NoError(t, err)
	assert.NotSame(t, first, again)
	assert.Equal(t, []string{"id"}, again.Placeholders())
}
