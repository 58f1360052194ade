// Package filter parses the include/exclude filter text used to narrow a
// trace flame graph down to the frames a user cares about.
//
// Terms are separated by spaces or commas. A leading '-' turns a term into an
// exclude. Terms containing delimiters can be quoted with ' or ".
package filter

import (
	"fmt"
	"strings"
)

// Spec is the parsed form of a filter string.
type Spec struct {
	Includes []string
	Excludes []string
}

// IsEmpty reports whether the spec filters nothing.
func (s Spec) IsEmpty() bool {
	return len(s.Includes) == 0 && len(s.Excludes) == 0
}

// ParseError describes malformed filter text.
type ParseError struct {
	Pos int // byte offset of the offending character
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid filter at position %d: %s", e.Pos, e.Msg)
}

func isDelimiter(c byte) bool {
	return c == ' ' || c == ',' || c == '\t'
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"'
}

// Parse splits text into include and exclude terms.
// Empty or blank text yields an empty Spec and no error.
func Parse(text string) (Spec, error) {
	var spec Spec
	if strings.TrimSpace(text) == "" {
		return spec, nil
	}

	var (
		term      strings.Builder
		inTerm    bool
		quote     byte // 0 when the current term is unquoted
		quoteAt   int
		isExclude bool
	)

	push := func() {
		if t := term.String(); t != "" {
			if isExclude {
				spec.Excludes = append(spec.Excludes, t)
			} else {
				spec.Includes = append(spec.Includes, t)
			}
		}
		term.Reset()
		inTerm = false
		quote = 0
		isExclude = false
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inTerm {
			switch {
			case quote != 0 && c == quote:
				push()
			case quote == 0 && isDelimiter(c):
				push()
			case quote == 0 && isQuote(c):
				return Spec{}, &ParseError{Pos: i, Msg: "mismatched quote"}
			default:
				term.WriteByte(c)
			}
			continue
		}

		switch {
		case isQuote(c):
			inTerm = true
			quote = c
			quoteAt = i
		case c == '-':
			if isExclude || i == len(text)-1 || isDelimiter(text[i+1]) {
				return Spec{}, &ParseError{Pos: i, Msg: "invalid use of - character"}
			}
			isExclude = true
		case isDelimiter(c):
			// skip
		default:
			inTerm = true
			term.WriteByte(c)
		}
	}

	if quote != 0 {
		return Spec{}, &ParseError{Pos: quoteAt, Msg: "mismatched quote"}
	}
	if inTerm {
		push()
	}

	return spec, nil
}

// String renders the spec back into filter text that Parse accepts.
func (s Spec) String() string {
	parts := make([]string, 0, len(s.Includes)+len(s.Excludes))
	for _, t := range s.Includes {
		parts = append(parts, quoteTerm(t))
	}
	for _, t := range s.Excludes {
		parts = append(parts, "-"+quoteTerm(t))
	}
	return strings.Join(parts, " ")
}

func quoteTerm(t string) string {
	if !strings.ContainsAny(t, " ,\t'\"") && !strings.HasPrefix(t, "-") {
		return t
	}
	if strings.Contains(t, "\"") {
		return "'" + t + "'"
	}
	return "\"" + t + "\""
}
