package route

import (
	"regexp"
	"strings"
	"unicode"
)

// prefixTable maps each route to the prefixes it owns. Prefixes match
// case-insensitively and may be terminated by a colon or whitespace.
var prefixTable = map[Route][]string{
	RouteWork:    {"작업", "work"},
	RouteOps:     {"운영", "ops"},
	RouteProject: {"프로젝트", "project"},
	RouteStatus:  {"상태", "status"},
	RouteMemo:    {"메모", "memo"},
	RouteWord:    {"단어", "word"},
	RouteInspect: {"점검", "inspect"},
	RouteDeploy:  {"배포", "deploy"},
	RoutePrompt:  {"프롬프트", "prompt"},
	RouteReport:  {"보고", "report"},
}

// StripOpsPrefix strips a leading ops prefix (plus separator) from one
// line. Used by the batch splitter to detect chunk boundaries.
func StripOpsPrefix(line string) (string, bool) {
	for _, prefix := range prefixTable[RouteOps] {
		if payload, ok := stripPrefix(strings.TrimSpace(line), prefix); ok {
			return payload, true
		}
	}
	return "", false
}

// nlRule is a natural-language inference rule: any keyword hit wins.
type nlRule struct {
	route    Route
	id       string
	keywords []string
}

// nlRules are checked in order after the prefix table misses.
var nlRules = []nlRule{
	{RouteStatus, "status-query", []string{"상태", "어때", "status"}},
	{RouteInspect, "inspect-query", []string{"점검", "체크해", "healthcheck"}},
	{RouteReport, "report-query", []string{"보고서", "리포트", "report"}},
}

// dayHeader matches a journal day-header line: "2025-08-31", "8/31 (일)".
var dayHeader = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2})(\s*\([^)]*\))?\s*$`)

// Config controls natural-language inference.
type Config struct {
	// EnableNL turns keyword inference on for prefix-less text.
	EnableNL bool
	// NLHubOnly restricts inference to callers that self-identify as the
	// supervisory hub. Non-hub callers fall through to RouteNone.
	NLHubOnly bool
}

// Classifier maps text to a Classified command.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given inference config.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify resolves text to a route. Matching order: journal block, static
// prefix table, natural-language rules, RouteNone. The role allowlist is
// applied last; a disallowed route becomes RouteBlocked with the original
// route preserved in RequestedRoute.
func (c *Classifier) Classify(text string, rc RoleContext) Classified {
	cmd := c.classify(strings.TrimSpace(text), rc)
	return ApplyGate(cmd, rc)
}

func (c *Classifier) classify(text string, rc RoleContext) Classified {
	// Journal blocks collide with the generic fallback, so they are
	// recognized before any prefix rule.
	if isJournalBlock(text) {
		return Classified{Route: RouteMemo, Payload: text, InferredBy: "journal-block"}
	}

	for _, r := range KnownRoutes {
		for _, prefix := range prefixTable[r] {
			if payload, ok := stripPrefix(text, prefix); ok {
				return Classified{Route: r, Payload: payload, InferredBy: "prefix:" + prefix}
			}
		}
	}

	if c.cfg.EnableNL && (!c.cfg.NLHubOnly || rc.IsHub) {
		folded := strings.ToLower(text)
		for _, rule := range nlRules {
			for _, kw := range rule.keywords {
				if strings.Contains(folded, kw) {
					return Classified{Route: rule.route, Payload: text, InferredBy: "nl:" + rule.id}
				}
			}
		}
	}

	return Classified{Route: RouteNone, Payload: text, InferredBy: "default"}
}

// stripPrefix matches prefix case-insensitively at the start of text and
// strips it together with one following separator (colon plus whitespace,
// or whitespace alone). A prefix followed by any other rune is no match.
func stripPrefix(text, prefix string) (string, bool) {
	if len(text) < len(prefix) {
		return "", false
	}
	head := text[:len(prefix)]
	if !strings.EqualFold(head, prefix) {
		return "", false
	}
	rest := text[len(prefix):]
	if rest == "" {
		return "", true
	}
	r := []rune(rest)[0]
	switch {
	case r == ':':
		return strings.TrimLeftFunc(rest[1:], unicode.IsSpace), true
	case unicode.IsSpace(r):
		return strings.TrimLeftFunc(rest, unicode.IsSpace), true
	default:
		return "", false
	}
}

// isJournalBlock reports whether text is a structured journal block:
// at least two day-header-style lines.
func isJournalBlock(text string) bool {
	if !strings.Contains(text, "\n") {
		return false
	}
	headers := 0
	for _, line := range strings.Split(text, "\n") {
		if dayHeader.MatchString(line) {
			headers++
			if headers >= 2 {
				return true
			}
		}
	}
	return false
}
