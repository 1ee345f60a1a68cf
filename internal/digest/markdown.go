package digest

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// MarkdownFormatter formats a digest as Markdown.
type MarkdownFormatter struct{}

// NewMarkdown creates a Markdown formatter.
func NewMarkdown() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format writes the digest as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, input DigestInput) error {
	fmt.Fprintf(w, "# askbrain top posts\n\n")
	fmt.Fprintf(w, "%d feeds, %d posts, top %d\n\n", input.Feeds, input.TotalPosts, len(input.Items))

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No posts found.")
	}

	for _, item := range input.Items {
		title := escapeMarkdown(item.Summary.Headline)
		if item.Post.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, item.Post.URL)
		}
		fmt.Fprintf(w, "%d. %s — %d views, %d likes\n", item.Rank, title,
			item.Post.Stats.Views, item.Post.Stats.Likes)
		if item.Summary.Snippet != "" {
			fmt.Fprintf(w, "   > %s\n", escapeMarkdown(item.Summary.Snippet))
		}
		if len(item.AlsoIn) > 0 {
			fmt.Fprintf(w, "   _(also in: %s)_\n", strings.Join(item.AlsoIn, ", "))
		}
	}
	if len(input.Items) > 0 {
		fmt.Fprintln(w)
	}

	if len(input.Overlaps) > 0 {
		fmt.Fprintf(w, "## Cross-posted (%d)\n\n", len(input.Overlaps))
		for _, o := range input.Overlaps {
			name := o.Title
			if name == "" {
				name = o.UID
			}
			fmt.Fprintf(w, "- **%s** — %s\n", escapeMarkdown(name), strings.Join(o.Feeds, ", "))
		}
		fmt.Fprintln(w)
	}

	if len(input.CategoryTop) > 0 {
		fmt.Fprintf(w, "## Categories\n\n")
		fmt.Fprintln(w, "| category | posts |")
		fmt.Fprintln(w, "|---|---|")
		for _, name := range sortedKeys(input.CategoryTop) {
			fmt.Fprintf(w, "| %s | %d |\n", escapeMarkdown(name), input.CategoryTop[name])
		}
		fmt.Fprintln(w)
	}

	if len(input.Failures) > 0 {
		fmt.Fprintf(w, "## Failed feeds (%d)\n\n", len(input.Failures))
		for _, fl := range input.Failures {
			fmt.Fprintf(w, "- `%s`: %s\n", fl.FeedUID, fl.Err)
		}
		fmt.Fprintln(w)
	}

	return nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "|", `\|`, "`", "\\`",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
