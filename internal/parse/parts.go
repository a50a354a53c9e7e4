// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package parse

// A Part represents a section of a parsed SQL statement, which forms a
// complete statement when rendered together with its surrounding parts, in
// their correct order.
type Part interface {
	// String returns the part's representation for debugging purposes.
	String() string

	part()
}

// PlaceholderPart is a named parameter placeholder such as @id.
type PlaceholderPart struct {
	Name string
}

// String returns the placeholder as written in the SQL.
func (p *PlaceholderPart) String() string {
	return "@" + p.Name
}

func (p *PlaceholderPart) part() {}

// BypassPart represents a part of the SQL that is passed to the database
// verbatim.
type BypassPart struct {
	Chunk string
}

// String returns the chunk.
func (p *BypassPart) String() string {
	return p.Chunk
}

func (p *BypassPart) part() {}
