package narrative

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/mata-s/novel-day/internal/models"
)

// Chapter is the structured result of one generation.
type Chapter struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Widest greedy brace match: recovers a JSON object wrapped in prose.
var jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)

// Failed parse stages log at most this many runes of the offending text.
const previewRunes = 300

// DefaultTitle is the title used when the model response yields none.
func DefaultTitle(kind models.PeriodKind) string {
	switch kind {
	case models.PeriodMonthly:
		return "今月の物語"
	case models.PeriodWeekly:
		return "第○週 まとめ章"
	default:
		return "今日の物語"
	}
}

// ExtractChapter recovers a {title, body} pair from raw model output. It never
// fails: stage one parses the whole text as JSON, stage two parses the first
// brace-delimited block, and stage three falls back to the raw text as the
// body with the period's default title.
func ExtractChapter(kind models.PeriodKind, raw string) Chapter {
	trimmed := strings.TrimSpace(raw)

	if ch, ok := parseChapter(trimmed); ok {
		return fillDefaults(kind, ch)
	}
	log.Printf("⚠️ [EXTRACT] %s response is not a chapter object: %s", kind, preview(trimmed))

	if block := jsonBlockRe.FindString(trimmed); block != "" {
		if ch, ok := parseChapter(block); ok {
			return fillDefaults(kind, ch)
		}
		log.Printf("⚠️ [EXTRACT] embedded %s block failed to parse: %s", kind, preview(block))
	} else {
		log.Printf("⚠️ [EXTRACT] no JSON-like block in %s response: %s", kind, preview(trimmed))
	}

	return Chapter{Title: DefaultTitle(kind), Body: trimmed}
}

// parseChapter reports success only when the text is a JSON object carrying at
// least one of the two expected fields.
func parseChapter(text string) (Chapter, bool) {
	var ch Chapter
	if err := json.Unmarshal([]byte(text), &ch); err != nil {
		return Chapter{}, false
	}
	if ch.Title == "" && ch.Body == "" {
		return Chapter{}, false
	}
	return ch, true
}

func fillDefaults(kind models.PeriodKind, ch Chapter) Chapter {
	if ch.Title == "" {
		ch.Title = DefaultTitle(kind)
	}
	return ch
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewRunes {
		return s
	}
	return string(runes[:previewRunes]) + "..."
}
