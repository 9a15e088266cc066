package search

import "testing"

// Metacharacters in user input must only ever match themselves: a prefix
// containing % is a search for a literal %, not a wildcard.
func TestEscapeLike(t *testing.T) {
	testCases := []struct {
		input       string
		expected    string
		description string
	}{
		{"cats", `cats`, "plain input untouched"},
		{"100%", `100\%`, "percent escaped"},
		{"long_hair", `long\_hair`, "underscore escaped"},
		{`back\slash`, `back\\slash`, "backslash escaped"},
		{`\%_`, `\\\%\_`, "all three together"},
		{"", "", "empty input"},
		{"%%", `\%\%`, "repeated metacharacters"},
		{`a\_b`, `a\\\_b`, "backslash before underscore"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			got := EscapeLike(tc.input)
			if got != tc.expected {
				t.Errorf("EscapeLike(%q): expected %q, got %q", tc.input, tc.expected, got)
			}
		})
	}
}

// pattern = escaped prefix + single trailing wildcard
func TestLikePattern(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"cat", "cat%"},
		{"", "%"},
		{"50%", `50\%%`},
		{"snow_leopard", `snow\_leopard%`},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := LikePattern(tc.input)
			if got != tc.expected {
				t.Errorf("LikePattern(%q): expected %q, got %q", tc.input, tc.expected, got)
			}
		})
	}
}
