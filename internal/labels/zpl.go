// Package labels renders ZPL payloads for Zebra label printers.
package labels

import (
	"fmt"
	"math"
	"strings"

	"packline/internal/config"
)

// DefaultDPI is the resolution of the stock printheads on the line.
const DefaultDPI = 203

// Half the footprint of a DataMatrix symbol at the default module size.
const symbolHalfDots = 125

const (
	minModuleSize = 2
	maxModuleSize = 12
)

var fieldEscaper = strings.NewReplacer("#", "#23", "\x1d", "#1D")

// EscapeField encodes text for a field opened with ^FH#. The hex indicator
// itself and GS become #23 and #1D.
func EscapeField(text string) string {
	return fieldEscaper.Replace(strings.TrimSpace(text))
}

// MMToDots converts millimetres to printer dots at dpi. Negative results
// clamp to zero.
func MMToDots(mm float64, dpi int) int {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return max(0, int(math.RoundToEven(mm/25.4*float64(dpi))))
}

// Printable reports whether text should be sent to a printer at all.
func Printable(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && text != "-"
}

// DataMatrix renders a single GS1 DataMatrix label for code using layout.
func DataMatrix(code string, layout config.Label, dpi int) string {
	pw := MMToDots(layout.WidthMM, dpi)
	ll := MMToDots(layout.HeightMM, dpi)
	x := max(0, max(0, pw/2-symbolHalfDots)+MMToDots(layout.OffsetXMM, dpi))
	y := max(0, max(0, ll/2-symbolHalfDots)+MMToDots(layout.OffsetYMM, dpi))
	module := min(maxModuleSize, max(minModuleSize, layout.ModuleSize))

	var b strings.Builder
	b.WriteString("^XA\n")
	fmt.Fprintf(&b, "~SD%02d\n", layout.Darkness)
	fmt.Fprintf(&b, "^PW%d\n", pw)
	fmt.Fprintf(&b, "^LL%d\n", ll)
	fmt.Fprintf(&b, "^FO%d,%d\n", x, y)
	fmt.Fprintf(&b, "^BXN,%d,200,,,,#\n", module)
	b.WriteString("^FH#\n")
	fmt.Fprintf(&b, "^FD%s^FS\n", EscapeField(code))
	b.WriteString("^XZ")
	return b.String()
}
