// Package narrative turns a window of diary entries into one generated
// chapter: style inference, prompt composition, the single completion call and
// the tolerant response extraction.
package narrative

import (
	"strings"

	"github.com/mata-s/novel-day/internal/models"
)

// DominantStyle returns the most frequent style tag among the entries, or the
// empty string when no entry carries one. Ties resolve to the lexicographically
// smallest tag so the result does not depend on entry order.
func DominantStyle(entries []models.SourceEntry) string {
	counts := make(map[string]int)
	for _, e := range entries {
		tag := strings.TrimSpace(e.Style)
		if tag == "" {
			continue
		}
		counts[tag]++
	}

	best := ""
	bestCount := 0
	for tag, n := range counts {
		if n > bestCount || (n == bestCount && tag < best) {
			best, bestCount = tag, n
		}
	}
	return best
}
