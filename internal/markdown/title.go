package markdown

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// firstMatch returns the value produced by the first line pred accepts.
func firstMatch(lines []string, pred func(string) (string, bool)) (string, bool) {
	for _, line := range lines {
		if v, ok := pred(line); ok {
			return v, true
		}
	}
	return "", false
}

// h1Text accepts an ATX level-one heading line: exactly one '#' followed by a space.
func h1Text(line string) (string, bool) {
	if !strings.HasPrefix(line, "# ") {
		return "", false
	}
	return strings.TrimSpace(line[2:]), true
}

// Humanize turns a file stem into a display label: dashes and underscores
// become spaces and every word is title-cased ("getting-started" becomes
// "Getting Started").
func Humanize(stem string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return cases.Title(language.Und).String(s)
}

// ExtractTitle returns the text of the first level-one heading line in
// content, or the humanized stem when there is none.
func ExtractTitle(content, stem string) string {
	if title, ok := firstMatch(strings.Split(content, "\n"), h1Text); ok {
		return title
	}
	return Humanize(stem)
}
