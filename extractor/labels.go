package extractor

import (
	"fmt"
	"strings"

	"github.com/Lulzx/zpdf/raw"
	"github.com/Lulzx/zpdf/strutil"
)

// PageLabel computes the label for one page from the /PageLabels
// number tree. Pages outside every range fall back to the 1-based
// decimal number.
func (e *Extractor) PageLabel(page int) string {
	if page < 0 || page >= len(e.pages) {
		return ""
	}
	labels := raw.DerefDict(e.src, lookupIn(e.catalog, "PageLabels"))
	if labels == nil {
		return fmt.Sprintf("%d", page+1)
	}
	nums := raw.DerefArray(e.src, labels.Lookup("Nums"))
	if nums == nil {
		return fmt.Sprintf("%d", page+1)
	}
	// find the last range starting at or before page
	startIdx, rangeDict := -1, (*raw.Dict)(nil)
	for i := 0; i+1 < nums.Len(); i += 2 {
		idx, ok := raw.AsInt(raw.Deref(e.src, nums.At(i)))
		if !ok {
			continue
		}
		if int(idx) <= page && int(idx) >= startIdx {
			if d := raw.DerefDict(e.src, nums.At(i+1)); d != nil {
				startIdx = int(idx)
				rangeDict = d
			}
		}
	}
	if rangeDict == nil {
		return fmt.Sprintf("%d", page+1)
	}
	prefix := ""
	if b, ok := raw.DictString(e.src, rangeDict, "P"); ok {
		prefix = strutil.DecodeTextString(b)
	}
	start := 1
	if st, ok := raw.DictInt(e.src, rangeDict, "St"); ok && st >= 1 {
		start = int(st)
	}
	n := start + (page - startIdx)
	style, _ := raw.DictName(e.src, rangeDict, "S")
	return prefix + formatPageNumber(style, n)
}

func formatPageNumber(style string, n int) string {
	switch style {
	case "D":
		return fmt.Sprintf("%d", n)
	case "r":
		return strings.ToLower(romanUpper(n))
	case "R":
		return romanUpper(n)
	case "a":
		return strings.ToLower(alphaUpper(n))
	case "A":
		return alphaUpper(n)
	}
	// no /S: the label is the prefix alone
	if style == "" {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

func romanUpper(n int) string {
	if n <= 0 || n >= 4000 {
		return fmt.Sprintf("%d", n)
	}
	vals := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	syms := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var sb strings.Builder
	for i, v := range vals {
		for n >= v {
			sb.WriteString(syms[i])
			n -= v
		}
	}
	return sb.String()
}

// alphaUpper counts A..Z, AA..ZZ, and so on.
func alphaUpper(n int) string {
	if n <= 0 {
		return ""
	}
	letter := byte('A' + (n-1)%26)
	count := (n-1)/26 + 1
	return strings.Repeat(string(letter), count)
}
