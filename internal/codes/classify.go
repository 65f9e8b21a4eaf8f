package codes

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// GroupSeparator is the ASCII GS byte used as the GS1 field separator.
const GroupSeparator = '\x1d'

// Type is the classification assigned to a code.
type Type string

const (
	TypePlain     Type = "PLAIN"
	TypeGS1Short  Type = "GS1_SHORT"
	TypeCtrlMixed Type = "CTRL_MIXED"
)

// Result is the outcome of classifying a raw code.
type Result struct {
	Raw              string
	KeepSeparator    string
	NoSeparator      string
	Type             Type
	HasSeparator     bool
	HasOtherControl  bool
	MatchesAIPattern bool
}

// PrefersNoSeparator reports whether matching should lead with the
// separator-free form.
func (r Result) PrefersNoSeparator() bool {
	return r.Type == TypeGS1Short || r.Type == TypeCtrlMixed
}

var (
	aiPattern = regexp.MustCompile(`^01\d{14}21`)

	// Scanners and spreadsheet exports substitute these for a literal GS.
	separatorPlaceholders = []string{"!s!", "!j!"}

	invisibles = strings.NewReplacer(
		"\ufeff", "",
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\u2060", "",
	)
)

// Classify normalizes raw and reports its type. It never fails.
func Classify(raw string) Result {
	stripped := invisibles.Replace(raw)
	normalized := norm.NFKC.String(stripped)

	res := Result{Raw: raw}
	res.HasSeparator = strings.ContainsRune(normalized, GroupSeparator) || hasPlaceholder(normalized)
	res.MatchesAIPattern = aiPattern.MatchString(stripped)
	for _, r := range normalized {
		if r != GroupSeparator && isOtherControl(r) {
			res.HasOtherControl = true
			break
		}
	}

	gs1Like := res.HasSeparator || res.MatchesAIPattern
	switch {
	case gs1Like && res.HasOtherControl:
		res.Type = TypeCtrlMixed
	case gs1Like:
		res.Type = TypeGS1Short
	case res.HasOtherControl:
		res.Type = TypeCtrlMixed
	default:
		res.Type = TypePlain
	}

	res.KeepSeparator = canonical(normalized, true)
	res.NoSeparator = canonical(normalized, false)
	return res
}

// Canonical returns the keep- or no-separator form of raw without the rest
// of the classification.
func Canonical(raw string, keepSeparator bool) string {
	return canonical(norm.NFKC.String(invisibles.Replace(raw)), keepSeparator)
}

func canonical(normalized string, keepSeparator bool) string {
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if r == GroupSeparator {
			if keepSeparator {
				b.WriteRune(r)
			}
			continue
		}
		if isControlCategory(r) {
			continue
		}
		b.WriteRune(r)
	}
	// Dropping a format character can leave a newly composable pair behind.
	out := norm.NFKC.String(b.String())
	return strings.TrimFunc(out, func(r rune) bool {
		return unicode.IsSpace(r) || r == GroupSeparator
	})
}

func hasPlaceholder(s string) bool {
	for _, p := range separatorPlaceholders {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isOtherControl(r rune) bool {
	return r < 32 || r == 127 || isControlCategory(r)
}

// isControlCategory matches the Unicode "C" major category, including
// unassigned code points.
func isControlCategory(r rune) bool {
	if unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs) {
		return true
	}
	return !unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z)
}
