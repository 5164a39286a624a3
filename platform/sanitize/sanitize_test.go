package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{"<b>bold</b> move", "bold move"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;", "alert(1)"},
		{"tabs\tand   spaces", "tabs and spaces"},
		{"line one\n\n  line two ", "line one\n\nline two"},
		{"bell\x07 char", "bell char"},
		{"5 > 3 & 2 < 4", "5 > 3 & 2 < 4"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Text(tc.in), "input %q", tc.in)
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, "Dana Levi", Line("  Dana\n<i>Levi</i> "))
	assert.Empty(t, Line("<br/>"))
}
