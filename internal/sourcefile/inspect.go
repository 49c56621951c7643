// Package sourcefile loads contact-list files and summarizes what they
// contain. The summary is informational; the analysis service does its own
// parsing.
package sourcefile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"leadgate/internal/models"
)

const (
	headerScanLines = 25
	goodEnough      = 3
)

var delimiters = []rune{',', '\t', ';', '|'}

// Summary describes one source file.
type Summary struct {
	Name       string
	Bytes      int
	Delimiter  rune
	HeaderLine int
	// Columns are the recognized canonical columns in canonical order.
	Columns []string
	Rows    int
	// SplitsFullName is set when a single name column stands in for first
	// and last name.
	SplitsFullName bool
	Problem        string
}

// Ready reports whether the file looks like a usable contact list.
func (s Summary) Ready() bool {
	return s.Problem == "" && s.Rows > 0 && len(s.Columns) > 0
}

func (s Summary) String() string {
	if s.Problem != "" {
		return fmt.Sprintf("%s: %s", s.Name, s.Problem)
	}
	return fmt.Sprintf("%s: %d rows, %d columns recognized (%s)",
		s.Name, s.Rows, len(s.Columns), DelimiterName(s.Delimiter))
}

func DelimiterName(r rune) string {
	switch r {
	case ',':
		return "comma"
	case '\t':
		return "tab"
	case ';':
		return "semicolon"
	case '|':
		return "pipe"
	}
	return string(r)
}

// InspectAll summarizes files in order.
func InspectAll(files []models.SourceFile) []Summary {
	out := make([]Summary, len(files))
	for i, f := range files {
		out[i] = Inspect(f)
	}
	return out
}

// Inspect finds the header row among the first lines, picks the delimiter that
// recognizes the most columns, and counts the data rows below the header.
func Inspect(f models.SourceFile) Summary {
	s := Summary{Name: f.Name, Bytes: len(f.Data), Delimiter: ','}

	if len(f.Data) == 0 {
		s.Problem = "file is empty"
		return s
	}

	content := strings.TrimSpace(strings.TrimPrefix(decode(f.Data), "\ufeff"))
	if content == "" {
		s.Problem = "file has no content"
		return s
	}

	lines := strings.Split(content, "\n")
	s.HeaderLine = detectHeader(lines)
	body := strings.Join(lines[s.HeaderLine:], "\n")

	var best map[int]string
	var bestHeader []string
	for _, d := range delimiters {
		records := readRecords(body, d, 1)
		if len(records) == 0 {
			continue
		}
		mapping := mapColumns(records[0])
		if best == nil || len(mapping) > len(best) {
			best, bestHeader, s.Delimiter = mapping, records[0], d
		}
		if len(mapping) >= goodEnough {
			break
		}
	}

	s.Rows = max(len(readRecords(body, s.Delimiter, -1))-1, 0)
	if s.Rows == 0 {
		s.Problem = "no data rows"
	}

	recognized := make(map[string]bool, len(best))
	for _, name := range best {
		recognized[name] = true
	}
	for _, cell := range bestHeader {
		if fullNameHeaders[strings.ToLower(strings.TrimSpace(cell))] &&
			(!recognized["First Name"] || !recognized["Last Name"]) {
			s.SplitsFullName = true
			recognized["First Name"], recognized["Last Name"] = true, true
			break
		}
	}
	for _, col := range canonicalColumns {
		if recognized[col.name] {
			s.Columns = append(s.Columns, col.name)
		}
	}

	return s
}

func detectHeader(lines []string) int {
	bestIdx, bestScore := 0, 0
	for i, line := range lines[:min(len(lines), headerScanLines)] {
		for _, d := range delimiters {
			records := readRecords(line, d, 1)
			if len(records) == 0 {
				continue
			}
			if score := headerScore(records[0]); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
	}
	return bestIdx
}

// readRecords parses up to limit records (all when limit < 0). Malformed
// rows end the read.
func readRecords(text string, delim rune, limit int) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var out [][]string
	for limit < 0 || len(out) < limit {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			break
		}
		for i := range rec {
			rec[i] = strings.Trim(strings.TrimSpace(rec[i]), `"'`)
		}
		out = append(out, rec)
	}
	return out
}

// decode treats data as UTF-8 and falls back to Latin-1.
func decode(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\ufffd")))
	}
	return string(out)
}
