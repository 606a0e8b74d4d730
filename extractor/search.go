package extractor

import "strings"

// SearchResult is one hit: the page, the byte offset into that
// page's extracted text, and a context window around the match.
type SearchResult struct {
	Page    int
	Offset  int
	Context string
}

const searchContextRadius = 32

// Search scans every page's reading-order text for the query,
// ASCII case-insensitive. An empty query matches nothing.
func (e *Extractor) Search(query string) []SearchResult {
	if query == "" {
		return nil
	}
	needle := asciiLower(query)
	var results []SearchResult
	for i := range e.pages {
		text, err := e.PageText(i)
		if err != nil || text == "" {
			continue
		}
		haystack := asciiLower(text)
		from := 0
		for {
			rel := strings.Index(haystack[from:], needle)
			if rel < 0 {
				break
			}
			at := from + rel
			results = append(results, SearchResult{
				Page:    i,
				Offset:  at,
				Context: contextWindow(text, at, len(query)),
			})
			from = at + len(needle)
		}
	}
	return results
}

func contextWindow(text string, at, matchLen int) string {
	lo := at - searchContextRadius
	if lo < 0 {
		lo = 0
	}
	hi := at + matchLen + searchContextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func asciiLower(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
