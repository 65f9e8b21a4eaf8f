package codes

import "strings"

// Crypto-tail identifiers that terminate a variable-length serial.
var knownAIs = []string{"91", "92", "93"}

// ParseApplicationIdentifiers extracts GTIN (01) and serial (21) from a
// GS1-like code. The result is advisory and never drives matching.
func ParseApplicationIdentifiers(code string) map[string]string {
	out := make(map[string]string)
	text := code
	for _, p := range separatorPlaceholders {
		text = strings.ReplaceAll(text, p, string(GroupSeparator))
	}
	text = Canonical(text, true)

	for _, part := range strings.Split(text, string(GroupSeparator)) {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "01") && len(part) >= 16 {
			if _, ok := out["01"]; !ok {
				out["01"] = part[2:16]
			}
			rest := part[16:]
			if strings.HasPrefix(rest, "21") {
				if _, ok := out["21"]; !ok {
					out["21"] = variableField(rest[2:])
				}
			}
			continue
		}
		if strings.HasPrefix(part, "21") && len(part) > 2 {
			if _, ok := out["21"]; !ok {
				out["21"] = variableField(part[2:])
			}
		}
	}
	return out
}

// variableField returns s up to the first recognized AI token that is not at
// the very start of the field.
func variableField(s string) string {
	cut := len(s)
	for _, ai := range knownAIs {
		if idx := strings.Index(s[min(1, len(s)):], ai); idx != -1 && idx+1 < cut {
			cut = idx + 1
		}
	}
	return s[:cut]
}

// ShortForm reduces a human-readable or long GS1 string to 01<gtin>21<serial>.
// Parentheses are removed; trailing 91/92/93 crypto fields are dropped.
// Inputs that do not start with a GTIN field come back without parentheses.
func ShortForm(text string) string {
	raw := strings.NewReplacer("(", "", ")", "").Replace(text)
	if !strings.HasPrefix(raw, "01") || len(raw) < 18 {
		return raw
	}
	gtin := raw[2:16]
	rest := raw[16:]
	if !strings.HasPrefix(rest, "21") {
		return raw
	}
	serial := rest[2:]
	cut := len(serial)
	for _, marker := range []string{"91", "92", "93"} {
		if idx := strings.Index(serial, marker); idx != -1 && idx < cut {
			cut = idx
		}
	}
	return "01" + gtin + "21" + serial[:cut]
}

// DisplayValue renders GS as a visible bar.
func DisplayValue(s string) string {
	return strings.ReplaceAll(s, string(GroupSeparator), "|")
}

const listTypeSample = 50

// DetectListType picks the dominant type of a product list by sampling its
// first non-empty records. Any GS1 short code wins outright.
func DetectListType(values []string) Type {
	counts := map[Type]int{}
	seen := 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		t := Classify(v).Type
		if t == TypeGS1Short {
			return TypeGS1Short
		}
		counts[t]++
		seen++
		if seen >= listTypeSample {
			break
		}
	}
	best, bestCount := TypePlain, 0
	for _, t := range []Type{TypePlain, TypeCtrlMixed} {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}
