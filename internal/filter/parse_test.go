package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		includes []string
		excludes []string
	}{
		{name: "empty", input: ""},
		{name: "blank", input: "   \t "},
		{name: "single_include", input: "foo", includes: []string{"foo"}},
		{name: "comma_separated", input: "foo,-bar", includes: []string{"foo"}, excludes: []string{"bar"}},
		{name: "space_separated", input: "foo -bar baz", includes: []string{"foo", "baz"}, excludes: []string{"bar"}},
		{name: "hyphen_inside_term", input: "foo-bar", includes: []string{"foo-bar"}},
		{name: "double_quoted", input: `"a b" c`, includes: []string{"a b", "c"}},
		{name: "single_quoted_exclude", input: `-'c,d'`, excludes: []string{"c,d"}},
		{name: "mixed_quotes", input: `"it's" -'say "hi"'`, includes: []string{"it's"}, excludes: []string{`say "hi"`}},
		{name: "empty_quoted_dropped", input: `"" foo`, includes: []string{"foo"}},
		{name: "repeated_delimiters", input: ",, foo ,, bar ,", includes: []string{"foo", "bar"}},
		{name: "order_preserved", input: "-z a -y b", includes: []string{"a", "b"}, excludes: []string{"z", "y"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.includes, spec.Includes)
			assert.Equal(t, tc.excludes, spec.Excludes)
		})
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		pos   int
		msg   string
	}{
		{name: "unterminated_double_quote", input: `foo "bar`, pos: 4, msg: "mismatched quote"},
		{name: "unterminated_single_quote", input: `'bar`, pos: 0, msg: "mismatched quote"},
		{name: "quote_inside_term", input: `fo"o`, pos: 2, msg: "mismatched quote"},
		{name: "trailing_minus", input: "foo -", pos: 4, msg: "invalid use of - character"},
		{name: "minus_before_delimiter", input: "- foo", pos: 0, msg: "invalid use of - character"},
		{name: "minus_before_comma", input: "foo,-,bar", pos: 4, msg: "invalid use of - character"},
		{name: "double_minus", input: "--foo", pos: 1, msg: "invalid use of - character"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := Parse(tc.input)
			require.Error(t, err)
			assert.True(t, spec.IsEmpty())

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.pos, perr.Pos)
			assert.Equal(t, tc.msg, perr.Msg)
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{`"`, `'`, `-`, `-"`, `"-`, `,-`, `'"'"`, "\x00", `--`, `"a"b`, `a"`, "-\t"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _, _ = Parse(in) }, "input %q", in)
	}
}

func TestSpecStringRoundTrip(t *testing.T) {
	spec := Spec{
		Includes: []string{"plain", "with space", `say "hi"`, "-leading"},
		Excludes: []string{"x", "a,b"},
	}

	parsed, err := Parse(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec, parsed)
}

func TestSpecIsEmpty(t *testing.T) {
	assert.True(t, Spec{}.IsEmpty())
	assert.False(t, Spec{Excludes: []string{"x"}}.IsEmpty())
}
