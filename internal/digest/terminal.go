package digest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TerminalFormatter formats a digest for terminal output.
type TerminalFormatter struct {
	color bool
}

// NewTerminal creates a terminal formatter. Set color=true for ANSI colors.
func NewTerminal(color bool) *TerminalFormatter {
	return &TerminalFormatter{color: color}
}

// Format writes the ranked posts as a table followed by overlaps and failures.
func (f *TerminalFormatter) Format(w io.Writer, input DigestInput) error {
	header := fmt.Sprintf("askbrain — %d feeds, %d posts, top %d",
		input.Feeds, input.TotalPosts, len(input.Items))
	fmt.Fprintln(w, f.bold(header))
	if !input.FetchedAt.IsZero() {
		fmt.Fprintln(w, f.dim("fetched at "+input.FetchedAt.Local().Format("2006-01-02 15:04:05 MST")))
	}
	fmt.Fprintln(w)

	if len(input.Items) == 0 {
		fmt.Fprintln(w, "No posts found.")
	} else if err := f.writeTable(w, input.Items); err != nil {
		return err
	}

	// Cross-posted section
	if len(input.Overlaps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, f.bold(fmt.Sprintf("--- Cross-posted (%d) ---", len(input.Overlaps))))
		for _, o := range input.Overlaps {
			title := o.Title
			if title == "" {
				title = o.UID
			}
			fmt.Fprintf(w, "  %s — in %d feeds\n", title, len(o.Feeds))
			fmt.Fprintf(w, "    %s\n", f.dim(strings.Join(o.Feeds, ", ")))
		}
	}

	if len(input.CategoryTop) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, f.bold("--- Categories ---"))
		for _, name := range sortedKeys(input.CategoryTop) {
			fmt.Fprintf(w, "  %s: %d posts\n", name, input.CategoryTop[name])
		}
	}

	if len(input.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, f.red(f.bold(fmt.Sprintf("--- Failed feeds (%d) ---", len(input.Failures)))))
		for _, fl := range input.Failures {
			fmt.Fprintf(w, "  %s: %s\n", fl.FeedUID, f.dim(fl.Err.Error()))
		}
	}

	return nil
}

func (f *TerminalFormatter) writeTable(w io.Writer, items []DigestItem) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)

	table.Header([]string{"#", "views", "likes", "post", "also in"})
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(item.Rank),
			strconv.Itoa(item.Post.Stats.Views),
			strconv.Itoa(item.Post.Stats.Likes),
			item.Summary.Headline,
			strings.Join(item.AlsoIn, ", "),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	// Links below the table keep rows short.
	fmt.Fprintln(w)
	for _, item := range items {
		if item.Post.URL == "" {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", f.green(fmt.Sprintf("[%d]", item.Rank)), f.dim(item.Post.URL))
		if item.Summary.Snippet != "" {
			fmt.Fprintf(w, "      %s\n", item.Summary.Snippet)
		}
	}
	return nil
}

// Color helpers; no-op when color=false.

func (f *TerminalFormatter) paint(s string, attrs ...color.Attribute) string {
	if !f.color {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (f *TerminalFormatter) bold(s string) string  { return f.paint(s, color.Bold) }
func (f *TerminalFormatter) dim(s string) string   { return f.paint(s, color.Faint) }
func (f *TerminalFormatter) green(s string) string { return f.paint(s, color.FgGreen) }
func (f *TerminalFormatter) red(s string) string   { return f.paint(s, color.FgRed) }
