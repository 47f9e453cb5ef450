package extract

import (
	"regexp"
	"sort"
)

// Assignment prefixes that commonly introduce inline state blobs:
//
//	window.__PRELOADED_STATE__ = {...};
//	self.__next_f.data = [...];
//	var meta = {...};
var assignmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:window|self|globalThis)(?:\.[A-Za-z_$][\w$]*)+\s*=`),
	regexp.MustCompile(`\b(?:var|let|const)\s+[A-Za-z_$][\w$]*\s*=`),
}

type blobSpan struct {
	start, end int
	value      *Value
}

// ExtractAssignedJSONBlobs returns the JSON objects and arrays assigned to
// globals or local variables inside a script body, ordered by position.
// Literals that are not valid JSON are skipped. The same source range is only
// returned once even when several assignment patterns lead to it.
func ExtractAssignedJSONBlobs(body string) []*Value {
	var spans []blobSpan
	for _, pattern := range assignmentPatterns {
		spans = append(spans, scanAssignments(body, pattern)...)
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})

	type key struct{ start, end int }
	seen := make(map[key]bool, len(spans))
	blobs := make([]*Value, 0, len(spans))
	for _, span := range spans {
		k := key{span.start, span.end}
		if seen[k] {
			continue
		}
		seen[k] = true
		blobs = append(blobs, span.value)
	}
	return blobs
}

func scanAssignments(body string, pattern *regexp.Regexp) []blobSpan {
	var spans []blobSpan
	idx := 0
	for idx < len(body) {
		loc := pattern.FindStringIndex(body[idx:])
		if loc == nil {
			break
		}
		matchEnd := idx + loc[1]

		// "==" and "===" are comparisons
		if matchEnd < len(body) && body[matchEnd] == '=' {
			idx = matchEnd
			continue
		}

		start := nextJSONStart(body, matchEnd)
		if start < 0 {
			idx = matchEnd
			continue
		}

		end, ok := balancedEnd(body, start)
		if !ok {
			idx = matchEnd
			continue
		}
		if v := parseJSONContainer(body[start:end]); v != nil {
			spans = append(spans, blobSpan{start: start, end: end, value: v})
		}
		idx = end
	}
	return spans
}

// nextJSONStart returns the offset of the first '{' or '[' at or after from,
// or -1 when a ';' or the end of the text comes first.
func nextJSONStart(text string, from int) int {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case '{', '[':
			return i
		case ';':
			return -1
		}
	}
	return -1
}

// balancedEnd scans from the bracket at start and returns the offset just
// past the bracket that brings depth back to zero. Brackets inside
// double-quoted strings are ignored; a backslash escapes exactly one
// character. ok is false when the literal never closes.
func balancedEnd(text string, start int) (end int, ok bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return len(text), false
}
