// Package tableconv rewrites HTML table elements into canonical
// Markdown pipe tables. It works on raw text rather than a parsed DOM
// so that malformed fragments can pass through untouched.
package tableconv

import (
	"html"
	"regexp"
	"strings"
)

var (
	tableOpenPattern = regexp.MustCompile(`(?i)<table\b`)
	tablePattern     = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)
	rowOpenPattern   = regexp.MustCompile(`(?i)<tr\b[^>]*>`)
	cellOpenPattern  = regexp.MustCompile(`(?i)<(?:td|th)\b[^>]*>`)
	breakPattern     = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern       = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// ContainsTable reports whether s has an HTML table element to convert.
func ContainsTable(s string) bool {
	return tableOpenPattern.MatchString(s)
}

// Convert replaces every HTML table in s with Markdown table syntax and
// leaves everything else untouched. Table-free input comes back as the
// same string. A table holding nothing but markup is removed; a table
// whose rows cannot be extracted but that still carries text passes
// through unchanged, so conversion never deletes visible content. A
// table element that never closes is not recognized.
func Convert(s string) string {
	if !ContainsTable(s) {
		return s
	}
	return tablePattern.ReplaceAllStringFunc(s, func(table string) string {
		grid := parseGrid(table)
		if len(grid) == 0 {
			if strings.TrimSpace(tagPattern.ReplaceAllString(table, "")) == "" {
				return ""
			}
			return table
		}
		return renderGrid(grid)
	})
}

// parseGrid extracts the cell text grid from one table element. Rows
// and cells are delimited by their opening tags alone, since HTML lets
// the closing tags be omitted; any closers present are stripped later
// with the rest of the markup. Rows without any cells are skipped.
func parseGrid(table string) [][]string {
	var grid [][]string
	for _, row := range segmentsAfter(table, rowOpenPattern) {
		cells := segmentsAfter(row, cellOpenPattern)
		if len(cells) == 0 {
			continue
		}
		texts := make([]string, 0, len(cells))
		for _, cell := range cells {
			texts = append(texts, cellText(cell))
		}
		grid = append(grid, texts)
	}
	return grid
}

// segmentsAfter cuts s at every match of the opening-tag pattern and
// returns the stretch following each match, up to the next match or
// the end of s.
func segmentsAfter(s string, opener *regexp.Regexp) []string {
	locs := opener.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return nil
	}
	segments := make([]string, 0, len(locs))
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segments = append(segments, s[loc[1]:end])
	}
	return segments
}

// renderGrid emits pipe-table lines with the separator after row 0.
// Ragged rows are padded with empty cells to the widest row.
func renderGrid(grid [][]string) string {
	columns := 0
	for _, row := range grid {
		if len(row) > columns {
			columns = len(row)
		}
	}

	var b strings.Builder
	for i, row := range grid {
		b.WriteString("|")
		for c := 0; c < columns; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			for c := 0; c < columns; c++ {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cellText(raw string) string {
	s := breakPattern.ReplaceAllString(raw, " ")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
