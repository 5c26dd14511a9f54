// Package content prepares post HTML delivered by the content backend.
package content

import (
	"strconv"
	"strings"

	"stfc-quiz-service/internal/domain"
)

// markerKeywords are tried in order; the longer one first so "stfc_quiz" is
// never read as an unknown prefix.
var markerKeywords = []string{"stfc_quiz", "quiz"}

// Split cuts html on quiz markers such as [stfc_quiz id="42"] or [quiz id=42].
// Keywords are case-insensitive, the id may be quoted, and spaces are allowed
// around '='. Malformed markers stay in the surrounding HTML. Segments keep
// input order and empty HTML pieces are dropped; input without any marker
// comes back as a single HTML segment.
func Split(html string) []domain.Segment {
	var segments []domain.Segment
	pending := 0

	for i := 0; i < len(html); {
		next := strings.IndexByte(html[i:], '[')
		if next < 0 {
			break
		}
		at := i + next

		id, end, ok := parseMarker(html, at)
		if !ok {
			i = at + 1
			continue
		}
		if at > pending {
			segments = append(segments, domain.Segment{Kind: domain.SegmentHTML, HTML: html[pending:at]})
		}
		segments = append(segments, domain.Segment{Kind: domain.SegmentQuiz, QuizID: id})
		pending = end
		i = end
	}

	if len(segments) == 0 {
		return []domain.Segment{{Kind: domain.SegmentHTML, HTML: html}}
	}
	if pending < len(html) {
		segments = append(segments, domain.Segment{Kind: domain.SegmentHTML, HTML: html[pending:]})
	}
	return segments
}

// QuizIDs lists the quizzes referenced by html in order of appearance.
func QuizIDs(html string) []int {
	var ids []int
	for _, seg := range Split(html) {
		if seg.Kind == domain.SegmentQuiz {
			ids = append(ids, seg.QuizID)
		}
	}
	return ids
}

// parseMarker reads a marker starting at the '[' found at s[at]. It returns the
// quiz id and the offset just past the closing ']'.
func parseMarker(s string, at int) (int, int, bool) {
	p := at + 1

	matched := false
	for _, kw := range markerKeywords {
		if hasPrefixFold(s[p:], kw) {
			p += len(kw)
			matched = true
			break
		}
	}
	if !matched {
		return 0, 0, false
	}

	// The keyword must be followed by whitespace before the attribute.
	q := skipSpace(s, p)
	if q == p {
		return 0, 0, false
	}
	p = q

	if !hasPrefixFold(s[p:], "id") {
		return 0, 0, false
	}
	p = skipSpace(s, p+len("id"))
	if p >= len(s) || s[p] != '=' {
		return 0, 0, false
	}
	p = skipSpace(s, p+1)

	var quote byte
	if p < len(s) && (s[p] == '"' || s[p] == '\'') {
		quote = s[p]
		p++
	}

	digits := p
	for p < len(s) && s[p] >= '0' && s[p] <= '9' {
		p++
	}
	if p == digits {
		return 0, 0, false
	}
	id, err := strconv.Atoi(s[digits:p])
	if err != nil {
		return 0, 0, false
	}

	if quote != 0 {
		if p >= len(s) || s[p] != quote {
			return 0, 0, false
		}
		p++
	}
	p = skipSpace(s, p)
	if p >= len(s) || s[p] != ']' {
		return 0, 0, false
	}
	return id, p + 1, true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func skipSpace(s string, p int) int {
	for p < len(s) && (s[p] == ' ' || s[p] == '\t' || s[p] == '\n' || s[p] == '\r') {
		p++
	}
	return p
}
