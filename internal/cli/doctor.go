package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/voroninsergei/askbrain/internal/config"
	"github.com/voroninsergei/askbrain/internal/feed"
	"github.com/voroninsergei/askbrain/internal/retry"
)

const doctorProbeTimeout = 15 * time.Second

var doctorOutputDir string

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings, output directory and feed reachability",
	Args:  cobra.NoArgs,
	RunE:  doctorAction,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorOutputDir, "output-dir", filepath.Dir(DefaultOutput), "directory fetch-top writes to")
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	ok := true

	// Settings
	s, err := loadSettings()
	if err != nil {
		printCheck(w, false, "settings: %v", err)
		return fmt.Errorf("some checks failed")
	}
	from := "environment"
	if s.EnvFile != "" {
		from = s.EnvFile
	}
	printCheck(w, true, "settings from %s (%d feeds, page size %d, concurrency %d, top %d)",
		from, len(s.FeedUIDs), s.PageSize, s.Concurrency, s.TopLimit)

	// Categories
	if s.CategoriesFile != "" {
		categories, err := config.LoadCategories(s.CategoriesFile)
		if err != nil {
			printCheck(w, false, "categories: %v", err)
			ok = false
		} else {
			printCheck(w, true, "categories %s (%s)", s.CategoriesFile, strings.Join(categories.Names(), ", "))
			for _, uid := range categories.UnknownFeeds(s.FeedUIDs) {
				printInfo(w, "category feed %s is not in %s", uid, config.KeyFeedUIDs)
			}
		}
	}

	// Output directory
	if err := checkWritable(doctorOutputDir); err != nil {
		printCheck(w, false, "output directory %s: %v", doctorOutputDir, err)
		ok = false
	} else {
		printCheck(w, true, "output directory %s", doctorOutputDir)
	}

	// Feeds: one attempt at the first page each
	client, err := newTildaClient(s, retry.Policy{MaxAttempts: 1, Multiplier: 1})
	if err != nil {
		printCheck(w, false, "tilda client: %v", err)
		return fmt.Errorf("some checks failed")
	}

	params, err := feed.FirstSlice(s.PageSize)
	if err != nil {
		return err
	}
	for _, uid := range s.FeedUIDs {
		ctx, cancel := context.WithTimeout(cmd.Context(), doctorProbeTimeout)
		resp, err := client.FetchPage(ctx, uid, params)
		cancel()
		if err != nil {
			printCheck(w, false, "feed %s: %v", uid, err)
			ok = false
			continue
		}
		more := ""
		if resp.NextSlice != nil {
			more = ", more pages"
		}
		printCheck(w, true, "feed %s (%d of %d posts on first page%s)", uid, len(resp.Posts), resp.Total, more)
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(w, "\nAll checks passed.")
	return nil
}

// checkWritable creates dir if needed and writes a probe file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".askbrain-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[INFO] %s\n", fmt.Sprintf(format, args...))
}
