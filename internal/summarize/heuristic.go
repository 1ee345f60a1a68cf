package summarize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/voroninsergei/askbrain/internal/feed"
)

var (
	urlRe  = regexp.MustCompile(`https?://[^\s"'<>]+`)
	hrefRe = regexp.MustCompile(`href\s*=\s*["']([^"']+)["']`)
)

const (
	maxHeadline = 100
	maxSnippet  = 160
)

// HeuristicSummarizer summarizes posts by rule-based extraction.
type HeuristicSummarizer struct {
	policy *bluemonday.Policy
}

// NewHeuristic creates a HeuristicSummarizer that strips all markup.
func NewHeuristic() *HeuristicSummarizer {
	return &HeuristicSummarizer{policy: bluemonday.StrictPolicy()}
}

// Summarize builds a headline and snippet from the post's title, description,
// text and part titles, in that order of preference.
func (h *HeuristicSummarizer) Summarize(p feed.Post) Summary {
	var bodies []string
	for _, s := range []*string{p.Descr, p.Text} {
		if s != nil {
			if plain := h.StripTags(*s); plain != "" {
				bodies = append(bodies, plain)
			}
		}
	}
	if len(bodies) == 0 && len(p.Parts) > 0 {
		bodies = append(bodies, strings.Join(p.Parts, ", "))
	}

	headline := h.StripTags(p.Title)
	if headline == "" && len(bodies) > 0 {
		headline = firstSentence(bodies[0], maxHeadline)
	}
	if headline == "" {
		headline = "(untitled)"
	}
	headline = truncate(headline, maxHeadline)

	var snippet string
	for _, b := range bodies {
		if s := firstSentence(b, maxSnippet); s != "" && s != headline {
			snippet = s
			break
		}
	}

	return Summary{
		Headline: headline,
		Snippet:  snippet,
		Links:    links(p),
	}
}

// StripTags removes all markup and collapses whitespace.
func (h *HeuristicSummarizer) StripTags(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(h.policy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

func links(p feed.Post) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(u string) {
		u = strings.TrimRight(u, ".,;:!?)")
		if u != "" && !seen[u] && u != p.URL {
			seen[u] = true
			out = append(out, u)
		}
	}
	for _, s := range []*string{p.Descr, p.Text} {
		if s == nil {
			continue
		}
		for _, m := range hrefRe.FindAllStringSubmatch(*s, -1) {
			if strings.HasPrefix(m[1], "http") {
				add(html.UnescapeString(m[1]))
			}
		}
		for _, u := range urlRe.FindAllString(*s, -1) {
			add(html.UnescapeString(u))
		}
	}
	return out
}

// firstSentence returns text up to the first sentence boundary, capped at maxLen runes.
func firstSentence(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	end := len(text)
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && text[i+1] == ' ' {
			end = i + 1
			break
		}
	}
	return truncate(text[:end], maxLen)
}

// truncate cuts s to at most maxLen runes, preferring a word boundary.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:maxLen])
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
