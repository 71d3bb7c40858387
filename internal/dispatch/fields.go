package dispatch

import (
	"sort"
	"strings"
)

// fieldAliases canonicalizes template field keys. Korean keys map to the
// same canonical names the English template uses.
var fieldAliases = map[string]string{
	"기능":   "capability",
	"액션":   "action",
	"동작":   "action",
	"대상":   "target",
	"경로":   "path",
	"패턴":   "pattern",
	"명령":   "command",
	"사유":   "reason",
	"토큰":   "token",
	"검색":   "query",
	"플래그":  "flag",
	"요청":   "request",
	"완료기준": "done",
}

// parseFields splits a template payload into key/value fields. Segments
// are separated by newlines or semicolons; each segment is "key: value".
// Keys are case-folded and alias-canonicalized; later duplicates win.
// Segments without a colon are ignored (free text).
func parseFields(payload string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(payload, "\n") {
		for _, seg := range strings.Split(line, ";") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			idx := strings.Index(seg, ":")
			if idx <= 0 {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(seg[:idx]))
			if canonical, ok := fieldAliases[key]; ok {
				key = canonical
			}
			fields[key] = strings.TrimSpace(seg[idx+1:])
		}
	}
	return fields
}

// splitList splits a comma- or whitespace-separated field value.
func splitList(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeFlags merges policy-required and explicitly supplied approval
// flags: case-normalized, deduplicated, sorted.
func mergeFlags(required []string, supplied []string) []string {
	seen := make(map[string]bool)
	for _, f := range append(append([]string(nil), required...), supplied...) {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			seen[f] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
