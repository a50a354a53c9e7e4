// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package parse finds the named parameter placeholders (@name) in SQL text.
// It does not otherwise parse the SQL. String literals, quoted identifiers
// and comments are skipped, as are @@ system variables.
package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/canonical/sqlbind/internal/typeinfo"
)

// Parser is used to parse SQL text into parts.
type Parser struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// prevPartEnd is the value of pos when we last finished parsing a
	// placeholder.
	prevPartEnd int
	parts       []Part
	lineNum     int
	lineStart   int
}

// NewParser returns a reference to a new parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParsedSQL is SQL text split into bypass chunks and placeholders. A
// statement like:
//
//	SELECT * FROM person WHERE id = @id AND name <> '@name'
//
// would be represented as:
//
//	[BypassPart PlaceholderPart BypassPart]
type ParsedSQL struct {
	parts []Part
}

// Parts returns the parts of the statement in order.
func (ps *ParsedSQL) Parts() []Part {
	return ps.parts
}

// Placeholders returns the distinct placeholder names in order of first
// appearance. Names differing only in case are the same placeholder.
func (ps *ParsedSQL) Placeholders() []string {
	var names []string
	seen := map[string]bool{}
	for _, p := range ps.parts {
		if pp, ok := p.(*PlaceholderPart); ok {
			f := typeinfo.Fold(pp.Name)
			if !seen[f] {
				seen[f] = true
				names = append(names, pp.Name)
			}
		}
	}
	return names
}

// Render writes the statement back out, replacing each placeholder with the
// string returned by placeholder.
func (ps *ParsedSQL) Render(placeholder func(name string) string) string {
	var b strings.Builder
	for _, p := range ps.parts {
		switch p := p.(type) {
		case *PlaceholderPart:
			b.WriteString(placeholder(p.Name))
		default:
			b.WriteString(p.String())
		}
	}
	return b.String()
}

// String returns the statement as it was parsed.
func (ps *ParsedSQL) String() string {
	return ps.Render(func(name string) string { return "@" + name })
}

// Parse takes SQL text and returns a ParsedSQL.
func (p *Parser) Parse(input string) (ps *ParsedSQL, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot parse sql: %s", err)
		}
	}()

	p.init(input)
	for p.pos < len(p.input) {
		if ok, err := p.skipStringLiteral(); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if p.skipComment() {
			continue
		}
		if p.char == '@' {
			start := p.pos
			name, ok := p.parsePlaceholder()
			if ok {
				p.add(start, &PlaceholderPart{Name: name})
				continue
			}
			if p.pos != start {
				// A system variable was skipped.
				continue
			}
		}
		p.advanceChar()
	}
	p.add(p.pos, nil)
	return &ParsedSQL{parts: p.parts}, nil
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.pos = 0
	p.nextPos = 0
	p.char = 0
	p.prevPartEnd = 0
	p.parts = []Part{}
	p.lineNum = 1
	p.lineStart = 0
	p.advanceChar()
}

// add pushes the bypass chunk between the end of the previous placeholder and
// start, followed by part if it is not nil.
func (p *Parser) add(start int, part Part) {
	if p.prevPartEnd != start {
		p.parts = append(p.parts, &BypassPart{p.input[p.prevPartEnd:start]})
	}
	if part != nil {
		p.parts = append(p.parts, part)
	}
	p.prevPartEnd = p.pos
}

// colNum calculates the current column number taking into account line breaks.
func (p *Parser) colNum() int {
	return p.pos - p.lineStart + 1
}

// advanceChar moves the parser to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (p *Parser) advanceChar() bool {
	if p.nextPos >= len(p.input) {
		p.char = 0
		p.pos = p.nextPos
		return false
	}
	if p.char == '\n' {
		p.lineStart = p.nextPos
		p.lineNum++
	}
	var size int
	p.char, size = utf8.DecodeRuneInString(p.input[p.nextPos:])
	p.pos = p.nextPos
	p.nextPos += size
	return true
}

// errorAt wraps an error with line and column information.
func errorAt(err error, line int, column int, input string) error {
	if strings.ContainsRune(input, '\n') {
		return fmt.Errorf("line %d, column %d: %w", line, column, err)
	}
	return fmt.Errorf("column %d: %w", column, err)
}

// A checkpoint struct for saving parser state to restore later.
type checkpoint struct {
	parser    *Parser
	pos       int
	nextPos   int
	char      rune
	lineNum   int
	lineStart int
}

// save takes a snapshot of the state of the parser and returns a pointer to a
// checkpoint that represents it.
func (p *Parser) save() *checkpoint {
	return &checkpoint{
		parser:    p,
		pos:       p.pos,
		nextPos:   p.nextPos,
		char:      p.char,
		lineNum:   p.lineNum,
		lineStart: p.lineStart,
	}
}

// restore sets the internal state of the parser to the values stored in the
// checkpoint.
func (cp *checkpoint) restore() {
	cp.parser.pos = cp.pos
	cp.parser.nextPos = cp.nextPos
	cp.parser.char = cp.char
	cp.parser.lineNum = cp.lineNum
	cp.parser.lineStart = cp.lineStart
}

// parsePlaceholder parses @name. A doubled @@ is skipped whole so that
// system variables such as @@IDENTITY are left alone.
func (p *Parser) parsePlaceholder() (string, bool) {
	cp := p.save()
	if !p.skipChar('@') {
		return "", false
	}
	if p.skipChar('@') {
		p.skipName()
		return "", false
	}
	mark := p.pos
	if !p.skipName() {
		cp.restore()
		return "", false
	}
	return p.input[mark:p.pos], true
}

// skipComment jumps over -- and /* */ comments. If no comment is found the
// parser state is left unchanged.
func (p *Parser) skipComment() bool {
	cp := p.save()
	c := p.char
	if p.skipChar('-') || p.skipChar('/') {
		if (c == '-' && p.skipChar('-')) || (c == '/' && p.skipChar('*')) {
			var end rune
			if c == '-' {
				end = '\n'
			} else {
				end = '*'
			}
			for p.pos < len(p.input) {
				if p.char == end {
					// if end == '\n' (i.e. its a -- comment) dont consume the newline.
					if end == '*' {
						p.advanceChar()
						if !p.skipChar('/') {
							continue
						}
					}
					return true
				}
				p.advanceChar()
			}
			// Reached end of input (valid comment end).
			return true
		}
		cp.restore()
		return false
	}
	return false
}

// skipStringLiteral jumps over single quoted strings, double quoted and
// backtick quoted identifiers. Doubled up quotes are escaped.
func (p *Parser) skipStringLiteral() (bool, error) {
	cp := p.save()

	c := p.char
	if p.skipChar('"') || p.skipChar('\'') || p.skipChar('`') {
		// We keep track of whether the next quote has been previously
		// escaped. If not, it might be a closing quote.
		maybeCloser := true
		for p.skipCharFind(c) {
			// If this looks like a closing quote, check if it might be an
			// escape for a following quote. If not, we're done.
			if maybeCloser && !p.peekChar(c) {
				return true, nil
			}
			maybeCloser = !maybeCloser
		}

		// Reached end of string and didn't find the closing quote
		cp.restore()
		return false, errorAt(fmt.Errorf("missing closing quote in string literal"), p.lineNum, p.colNum(), p.input)
	}
	return false, nil
}

// peekChar returns true if the current char equals the one passed as parameter.
func (p *Parser) peekChar(c rune) bool {
	return p.pos < len(p.input) && p.char == c
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (p *Parser) skipChar(c rune) bool {
	if p.pos < len(p.input) && p.char == c {
		p.advanceChar()
		return true
	}
	return false
}

// skipCharFind looks for a char that matches the one passed as parameter and
// then advances the parser to jump over it. In that case returns true. If the
// end of the string is reached and no matching char was found, it returns
// false and it does not change the parser.
func (p *Parser) skipCharFind(c rune) bool {
	cp := p.save()
	for p.pos < len(p.input) {
		if p.char == c {
			p.advanceChar()
			return true
		}
		p.advanceChar()
	}
	cp.restore()
	return false
}

// isNameChar returns true if the given char can be part of a placeholder
// name.
func isNameChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

// isInitialNameChar returns true if the given char can appear at the start of
// a name.
func isInitialNameChar(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

// skipName advances the parser until it is on the first non name char and
// returns true. If the p.pos does not start on a name char it returns false.
func (p *Parser) skipName() bool {
	if p.pos >= len(p.input) {
		return false
	}
	mark := p.pos
	if isInitialNameChar(p.char) {
		p.advanceChar()
		for p.pos < len(p.input) && isNameChar(p.char) {
			p.advanceChar()
		}
	}
	return p.pos > mark
}
