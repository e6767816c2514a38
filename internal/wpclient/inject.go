package wpclient

import "strings"

// InjectLink wraps the first occurrence of anchorText in html with a link to
// targetURL, preserving the original casing of the matched text. Occurrences
// that already sit inside an <a> element are skipped. ok is false when no
// free occurrence exists.
func InjectLink(html, anchorText, targetURL string) (string, bool) {
	anchor := strings.TrimSpace(anchorText)
	if anchor == "" || html == "" {
		return html, false
	}

	pos, ok := findPlacement(html, anchor)
	if !ok {
		return html, false
	}

	original := html[pos : pos+len(anchor)]
	linked := `<a href="` + targetURL + `">` + original + `</a>`
	return html[:pos] + linked + html[pos+len(anchor):], true
}

// findPlacement returns the byte offset of the first occurrence of anchor in
// html that sits in visible text outside any <a> element. Matching folds
// case per candidate window against the original text, so every reported
// offset indexes html directly; case variants that change byte length simply
// never match.
func findPlacement(html, anchor string) (int, bool) {
	n := len(anchor)
	if n == 0 || len(html) < n {
		return 0, false
	}

	for pos := 0; pos+n <= len(html); pos++ {
		if !strings.EqualFold(html[pos:pos+n], anchor) {
			continue
		}
		if insideLink(html, pos) || insideTag(html, pos) {
			pos += n - 1
			continue
		}
		return pos, true
	}
	return 0, false
}

// placementContext returns the plain text around a placement and the HTML
// slice from the enclosing tag through the anchor, for placement validation.
func placementContext(html string, pos, anchorLen int) (surrounding, htmlContext string) {
	start := pos - 120
	if start < 0 {
		start = 0
	}
	end := pos + anchorLen + 120
	if end > len(html) {
		end = len(html)
	}
	surrounding = stripTags(html[start:end])

	tagStart := strings.LastIndexByte(html[:pos], '<')
	if tagStart < 0 {
		tagStart = start
	}
	htmlContext = html[tagStart : pos+anchorLen]
	return surrounding, htmlContext
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// insideLink reports whether the position is inside an existing <a> element:
// the nearest preceding <a comes after the nearest preceding </a>.
func insideLink(html string, pos int) bool {
	before := html[:pos]
	open := lastIndexFold(before, "<a")
	if open < 0 {
		return false
	}
	return open > lastIndexFold(before, "</a>")
}

// insideTag reports whether the position falls within a tag's attribute
// region rather than visible text.
func insideTag(html string, pos int) bool {
	before := html[:pos]
	open := strings.LastIndexByte(before, '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(before[open:], '>') < 0
}

// lastIndexFold is strings.LastIndex with ASCII-insensitive tag matching.
func lastIndexFold(s, sub string) int {
	n := len(sub)
	for i := len(s) - n; i >= 0; i-- {
		if strings.EqualFold(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}
