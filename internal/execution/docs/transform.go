// Package docs generates markdown documentation from JavaScript sources
// by unwrapping block comments and indenting code as markdown code blocks.
package docs

import (
	"strings"
	"unicode/utf8"
)

// markerLen is how much of a comment-marker line is dropped.
const markerLen = 3

var markers = []string{"/*", "*/", " *"}

// Transform rewrites one source file. Carriage returns are removed and
// the text is split on line feeds. A line starting with a comment marker
// loses its first three characters, or becomes two blank lines when it
// has three characters or fewer. Any other line is indented by four
// spaces and terminated with a line feed. Results are joined with no
// separator.
func Transform(src string) string {
	src = strings.ReplaceAll(src, "\r", "")

	var b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		b.WriteString(TransformLine(line))
	}
	return b.String()
}

// TransformLine applies the rule for a single physical line.
func TransformLine(line string) string {
	if isMarkerLine(line) {
		if utf8.RuneCountInString(line) > markerLen {
			return dropRunes(line, markerLen)
		}
		// Short marker lines become two blank lines, not one.
		return "\n\n"
	}
	return "    " + line + "\n"
}

// TransformFiles transforms each source in order and joins the results
// with sep.
func TransformFiles(sep string, sources ...string) string {
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = Transform(src)
	}
	return strings.Join(out, sep)
}

func isMarkerLine(line string) bool {
	for _, m := range markers {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}

func dropRunes(s string, n int) string {
	for i := 0; i < n && s != ""; i++ {
		_, size := utf8.DecodeRuneInString(s)
		s = s[size:]
	}
	return s
}
