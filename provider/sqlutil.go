// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package provider

import (
	"database/sql"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/canonical/sqlbind/internal/errors"
	"github.com/canonical/sqlbind/internal/parse"
	"github.com/canonical/sqlbind/internal/typeinfo"
)

// PlaceholderStyle is the driver syntax for a bound argument.
type PlaceholderStyle int

const (
	// AtNamed placeholders are written @name and bound with sql.Named.
	AtNamed PlaceholderStyle = iota
	// ColonNamed placeholders are written :name and bound with sql.Named.
	ColonNamed
	// Dollar placeholders are written $1, $2, ... Repeated names share a
	// number.
	Dollar
	// Question placeholders are written ?, one argument per occurrence.
	Question
)

// maxParsedTexts bounds the parse cache. The least recently used text is
// dropped when it is full.
const maxParsedTexts = 1024

var parsedTexts = func() *lru.Cache[string, *parse.ParsedSQL] {
	c, err := lru.New[string, *parse.ParsedSQL](maxParsedTexts)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	return c
}()

// Parse returns the parsed form of the SQL text of a command. Results are
// cached by text.
func Parse(text string) (*parse.ParsedSQL, error) {
	if ps, ok := parsedTexts.Get(text); ok {
		return ps, nil
	}
	ps, err := parse.NewParser().Parse(text)
	if err != nil {
		return nil, err
	}
	parsedTexts.Add(text, ps)
	return ps, nil
}

// RenderText rewrites the @name placeholders of a text command into style
// and returns the arguments to pass to the driver. Every placeholder must
// have a parameter on cmd.
func RenderText(cmd *Command, style PlaceholderStyle) (string, []any, error) {
	const op = "provider.RenderText"
	if err := CheckCommand(op, cmd); err != nil {
		return "", nil, err
	}
	ps, err := Parse(cmd.Text)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ParameterBinding, op, "")
	}
	for _, name := range ps.Placeholders() {
		if _, ok := cmd.Parameter(name); !ok {
			return "", nil, errors.New(errors.ParameterBinding, op, "no value bound for placeholder", errors.WithName(name))
		}
	}

	var args []any
	switch style {
	case AtNamed, ColonNamed:
		prefix := "@"
		if style == ColonNamed {
			prefix = ":"
		}
		for _, name := range ps.Placeholders() {
			p, _ := cmd.Parameter(name)
			args = append(args, sql.Named(TrimPrefix(p.Name), p.Value))
		}
		return ps.Render(func(name string) string {
			p, _ := cmd.Parameter(name)
			return prefix + TrimPrefix(p.Name)
		}), args, nil
	case Dollar:
		numbers := map[string]int{}
		return ps.Render(func(name string) string {
			f := typeinfo.Fold(name)
			n, ok := numbers[f]
			if !ok {
				p, _ := cmd.Parameter(name)
				args = append(args, p.Value)
				n = len(args)
				numbers[f] = n
			}
			return "$" + strconv.Itoa(n)
		}), args, nil
	default:
		return ps.Render(func(name string) string {
			p, _ := cmd.Parameter(name)
			args = append(args, p.Value)
			return "?"
		}), args, nil
	}
}

// QuoteIdentifier quotes each dot separated part of name with left and
// right. A right quote inside a part is doubled. A part that is already
// quoted, with every right quote inside it doubled, is kept.
func QuoteIdentifier(name, left, right string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if isQuoted(part, left, right) {
			continue
		}
		parts[i] = left + strings.ReplaceAll(part, right, right+right) + right
	}
	return strings.Join(parts, ".")
}

func isQuoted(part, left, right string) bool {
	if len(part) < len(left)+len(right) || !strings.HasPrefix(part, left) || !strings.HasSuffix(part, right) {
		return false
	}
	inner := part[len(left) : len(part)-len(right)]
	return !strings.Contains(strings.ReplaceAll(inner, right+right, ""), right)
}

// EmptyQuery wraps a text command in a query that selects no rows. The
// placeholders of the command are kept.
func EmptyQuery(text string) string {
	text = strings.TrimRight(strings.TrimSpace(text), ";")
	return "SELECT * FROM (" + text + ") q WHERE 1 = 0"
}

// CallPlaceholders returns the call parameters of cmd and a list of their
// names as @name placeholders, for use in generated text commands.
func CallPlaceholders(cmd *Command) ([]*Parameter, []string) {
	ps := CallParameters(cmd)
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, "@"+TrimPrefix(p.Name))
	}
	return ps, names
}
