package logging

import "strings"

const infoAttrLimit = 8

// Keys shown first on INFO and above, in this order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldErrorHint,
	FieldImpact,
	"outcome",
	"reason",
	"code",
	"box",
	"box_label",
	"verified",
	"total",
	"device",
	"address",
	"error",
}

// Keys already rendered in the header or too noisy for INFO output.
var infoSuppressedKeys = map[string]struct{}{
	FieldJobID:     {},
	FieldDisplayID: {},
}

func selectInfoFields(attrs []kv) ([]kv, int) {
	byKey := make(map[string]kv, len(attrs))
	for _, a := range attrs {
		byKey[a.key] = a
	}
	shown := make([]kv, 0, infoAttrLimit)
	used := make(map[string]struct{}, infoAttrLimit)
	for _, key := range infoHighlightKeys {
		if a, ok := byKey[key]; ok && len(shown) < infoAttrLimit {
			shown = append(shown, a)
			used[key] = struct{}{}
		}
	}
	hidden := 0
	for _, a := range attrs {
		if _, ok := used[a.key]; ok {
			continue
		}
		if _, ok := infoSuppressedKeys[a.key]; ok {
			continue
		}
		if len(shown) < infoAttrLimit {
			shown = append(shown, a)
			continue
		}
		hidden++
	}
	return shown, hidden
}

func displayLabel(key string) string {
	if key == "" {
		return key
	}
	label := strings.ReplaceAll(key, "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}
