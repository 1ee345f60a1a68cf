package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/voroninsergei/askbrain/internal/aggregate"
	"github.com/voroninsergei/askbrain/internal/config"
	"github.com/voroninsergei/askbrain/internal/digest"
	"github.com/voroninsergei/askbrain/internal/metrics"
	"github.com/voroninsergei/askbrain/internal/source"
	"github.com/voroninsergei/askbrain/internal/summarize"
)

const (
	DefaultOutput     = "data/top_posts.json"
	DefaultMetaOutput = "data/top_posts_meta.json"
)

var (
	fetchOutput     string
	fetchMetaOutput string
	fetchLimit      int
	fetchFormat     string
	noColor         bool
)

var fetchTopCmd = &cobra.Command{
	Use:   "fetch-top",
	Short: "Fetch all feeds and write the most viewed posts",
	Args:  cobra.NoArgs,
	RunE:  fetchTopAction,
}

func init() {
	fetchTopCmd.Flags().StringVar(&fetchOutput, "output", DefaultOutput, "path of the posts JSON file")
	fetchTopCmd.Flags().StringVar(&fetchMetaOutput, "meta-output", DefaultMetaOutput, "path of the metadata JSON file")
	fetchTopCmd.Flags().IntVar(&fetchLimit, "limit", 0, "number of top posts to keep (0 uses TOP_LIMIT)")
	fetchTopCmd.Flags().StringVar(&fetchFormat, "format", "terminal", "stdout summary: terminal, markdown, json, none")
	fetchTopCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(fetchTopCmd)
}

func fetchTopAction(cmd *cobra.Command, _ []string) error {
	formatter, err := selectFormatter(fetchFormat, !noColor && !color.NoColor)
	if err != nil {
		return err
	}
	if fetchLimit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", fetchLimit)
	}

	s, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	log, err := newLogger(cmd.ErrOrStderr(), s, "fetch-top")
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	var categories config.Categories
	if s.CategoriesFile != "" {
		if categories, err = config.LoadCategories(s.CategoriesFile); err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		if unknown := categories.UnknownFeeds(s.FeedUIDs); len(unknown) > 0 {
			log.Warn("categories reference feeds that are not fetched", slog.Any("feed_uids", unknown))
		}
	}

	limit := s.TopLimit
	if fetchLimit > 0 {
		limit = fetchLimit
	}

	rec := metrics.NewRecorder()
	client, err := newTildaClient(s, retryPolicy,
		source.WithObserver(rec),
		source.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create tilda client: %w", err)
	}

	svc := aggregate.New(client,
		aggregate.WithLimit(limit),
		aggregate.WithConcurrency(s.Concurrency),
		aggregate.WithTieBreak(s.TieBreak),
		aggregate.WithCategories(categories),
		aggregate.WithObserver(rec),
		aggregate.WithLogger(log),
	)

	ctx := cmd.Context()
	log.Info("fetching top posts",
		slog.Any("feed_uids", s.FeedUIDs),
		slog.Int("limit", limit),
		slog.Int("concurrency", s.Concurrency),
	)
	res, err := svc.FetchTopPosts(ctx, s.FeedUIDs)
	if err != nil {
		return fmt.Errorf("fetch top posts: %w", err)
	}

	if err := digest.WriteJSONFile(fetchOutput, digest.Posts(res)); err != nil {
		return fmt.Errorf("write posts: %w", err)
	}
	if err := digest.WriteJSONFile(fetchMetaOutput, digest.Meta(res)); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	log.Info("results written",
		slog.String("output", fetchOutput),
		slog.String("meta_output", fetchMetaOutput),
		slog.Int("result_posts", len(res.Posts)),
	)

	runErr := res.Err()
	rec.RecordRun(res.TotalPosts, len(res.Posts), runErr == nil, time.Now())
	if s.PushgatewayURL != "" {
		if err := rec.Push(ctx, s.PushgatewayURL); err != nil {
			log.Warn("metrics push failed", slog.Any("error", err))
		}
	}

	if formatter != nil {
		input := digest.NewInput(res, summarize.NewHeuristic())
		if err := formatter.Format(cmd.OutOrStdout(), input); err != nil {
			return fmt.Errorf("format summary: %w", err)
		}
	}

	return runErr
}

func selectFormatter(format string, useColor bool) (digest.Formatter, error) {
	switch format {
	case "terminal", "":
		return digest.NewTerminal(useColor), nil
	case "markdown":
		return digest.NewMarkdown(), nil
	case "json":
		return digest.NewJSON(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("--format: unknown format %q (want terminal, markdown, json or none)", format)
	}
}
