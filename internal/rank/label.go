package rank

import (
	"regexp"
	"strconv"
)

// Results per page in the search engine's pagination model.
const pageSize = 10

var labelPattern = regexp.MustCompile(`Page (\d+) Rank (\d+)`)

// FormatPosition renders a 1-based absolute position as its display label,
// e.g. 1 -> "Page 1 Rank 1", 11 -> "Page 2 Rank 1", 100 -> "Page 10 Rank 10".
func FormatPosition(position int) string {
	if position < 1 {
		return LabelNotRanked
	}
	page := ((position - 1) / pageSize) + 1
	rankInPage := ((position - 1) % pageSize) + 1
	return "Page " + strconv.Itoa(page) + " Rank " + strconv.Itoa(rankInPage)
}

// FormatResult renders the cell label for a lookup outcome.
func FormatResult(r Result) string {
	if r.Failed {
		return LabelError
	}
	if !r.Found {
		return LabelNotRanked
	}
	return FormatPosition(r.Position)
}

// ParseLabel recovers the absolute position from a stored cell label. It
// tolerates an appended improvement marker and reports false for anything
// without a positional label ("Not Ranked", "Error", blank, free text).
func ParseLabel(text string) (int, bool) {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil || page < 1 {
		return 0, false
	}
	rankInPage, err := strconv.Atoi(m[2])
	if err != nil || rankInPage < 1 {
		return 0, false
	}
	return (page-1)*pageSize + rankInPage, true
}
