// Package productlist reads the expected-code lists and box label lists the
// line is loaded with. Text exports (CSV, TXT) and XLSX workbooks are both
// accepted.
package productlist

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"packline/internal/codes"
)

// ErrNoRecords reports a file that holds no usable codes.
var ErrNoRecords = errors.New("no records in file")

// List is a decoded product or box label file.
type List struct {
	Path      string
	Records   []string
	Encoding  string
	Delimiter rune
	CodeType  codes.Type
}

// Read loads path, picking the XLSX or text reader by extension.
func Read(path string) (*List, error) {
	var (
		list *List
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		list, err = readWorkbook(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err == nil {
			list, err = Parse(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	list.Path = path
	if len(list.Records) == 0 {
		return list, fmt.Errorf("read %s: %w", path, ErrNoRecords)
	}
	return list, nil
}

// Parse decodes a text export held in memory.
func Parse(data []byte) (*List, error) {
	text, enc := decodeText(data)
	cells, delim := splitCells(text)
	records := mergeContinuations(cleanCells(cells))
	return &List{
		Records:   records,
		Encoding:  enc,
		Delimiter: delim,
		CodeType:  codes.DetectListType(records),
	}, nil
}

var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1254", charmap.Windows1254},
	{"windows-1251", charmap.Windows1251},
	{"iso-8859-1", charmap.ISO8859_1},
}

// decodeText tries UTF-8 (with or without BOM) and then the single-byte
// code pages used by older exports. A code page decode that produces a
// replacement rune counts as a failure.
func decodeText(data []byte) (string, string) {
	if utf8.Valid(data) {
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
		if err == nil {
			return string(out), "utf-8"
		}
	}
	for _, candidate := range legacyEncodings {
		out, _, err := transform.Bytes(candidate.enc.NewDecoder(), data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), candidate.name
	}
	return strings.ToValidUTF8(string(data), ""), "utf-8"
}

const sniffSample = 4096

var candidateDelimiters = []rune{';', ',', '\t', '|'}

// sniffDelimiter picks the candidate present on the most sample lines.
// Zero means the file is one value per line.
func sniffDelimiter(text string) rune {
	sample := text
	if len(sample) > sniffSample {
		sample = sample[:sniffSample]
	}
	lines := strings.FieldsFunc(sample, func(r rune) bool { return r == '\n' || r == '\r' })
	var (
		best      rune
		bestLines int
	)
	for _, delim := range candidateDelimiters {
		n := 0
		for _, line := range lines {
			if strings.ContainsRune(line, delim) {
				n++
			}
		}
		if n > bestLines {
			best, bestLines = delim, n
		}
	}
	return best
}

func splitCells(text string) ([]string, rune) {
	delim := sniffDelimiter(text)
	if delim != 0 {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		var cells []string
		ok := true
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				ok = false
				break
			}
			if cell := firstNonEmpty(row); cell != "" {
				cells = append(cells, cell)
			}
		}
		if ok {
			return cells, delim
		}
	}
	var cells []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if line = strings.TrimSpace(line); line != "" {
			cells = append(cells, line)
		}
	}
	return cells, 0
}

func firstNonEmpty(row []string) string {
	for _, cell := range row {
		if cell = strings.TrimSpace(cell); cell != "" {
			return cell
		}
	}
	return ""
}

var headerWords = map[string]struct{}{
	"barkod": {}, "barcode": {}, "datamatrix": {}, "code": {}, "kod": {},
}

func isHeader(value string) bool {
	low := strings.ToLower(value)
	if _, ok := headerWords[low]; ok {
		return true
	}
	return strings.Contains(low, "barkod")
}

func cleanCells(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, cell := range cells {
		value := codes.Canonical(cell, true)
		if value == "" || isHeader(value) {
			continue
		}
		out = append(out, value)
	}
	return out
}

// mergeContinuations joins rows that belong to the previous GS1 record.
// A record starts with "01" and is at least 16 characters; anything after a
// record start is a continuation joined with GS. Lists without any record
// start, such as box label lists, are returned as they are.
func mergeContinuations(values []string) []string {
	if !slices.ContainsFunc(values, startsRecord) {
		return values
	}
	var (
		merged []string
		cur    string
	)
	for _, v := range values {
		if startsRecord(v) {
			if cur != "" {
				merged = append(merged, cur)
			}
			cur = v
			continue
		}
		if cur != "" {
			cur += string(codes.GroupSeparator) + v
		} else {
			cur = v
		}
	}
	if cur != "" {
		merged = append(merged, cur)
	}
	return merged
}

func startsRecord(v string) bool {
	return strings.HasPrefix(v, "01") && len(v) >= 16
}

func readWorkbook(path string) (*List, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &List{Encoding: "xlsx"}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	cells := make([]string, 0, len(rows))
	for _, row := range rows {
		if cell := firstNonEmpty(row); cell != "" {
			cells = append(cells, cell)
		}
	}
	records := mergeContinuations(cleanCells(cells))
	return &List{
		Records:  records,
		Encoding: "xlsx",
		CodeType: codes.DetectListType(records),
	}, nil
}
