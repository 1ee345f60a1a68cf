package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voroninsergei/askbrain/internal/config"
)

const defaultCategoriesFile = "categories.yaml"

var initDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example .env and categories file",
	Args:  cobra.NoArgs,
	RunE:  initAction,
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", ".", "directory to write the example files to")
	rootCmd.AddCommand(initCmd)
}

func initAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if err := os.MkdirAll(initDir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	created := 0

	envPath := filepath.Join(initDir, config.DefaultEnvFile)
	wrote, err := writeIfNotExists(w, envPath, []byte(exampleEnv))
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	categoriesPath := filepath.Join(initDir, defaultCategoriesFile)
	wrote, err = writeIfNotExists(w, categoriesPath, []byte(exampleCategories))
	if err != nil {
		return err
	}
	if wrote {
		created++
	}

	if created == 0 {
		fmt.Fprintf(w, "Directory %s already initialized.\n", initDir)
	} else {
		fmt.Fprintf(w, "Initialized %s with %d files.\n", initDir, created)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(w io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  created: %s\n", path)
	return true, nil
}

const exampleEnv = `# askbrain settings

# Sent as Origin and Referer to the feeds API.
ORIGIN_HOST=https://askbrain.ru
# Comma-separated feed uids.
TILDA_FEED_UIDS=824854191681

TILDA_SIZE=100
TILDA_CONCURRENCY=2
# TILDA_API_URL=https://feeds.tildaapi.com/api/getfeed/
# TILDA_TIMEZONE=Europe/Moscow
# TILDA_RPS=5
# TILDA_CATEGORIES_FILE=categories.yaml

TOP_LIMIT=10
# none, uid or published
TOP_TIEBREAK=none

# PUSHGATEWAY_URL=http://localhost:9091
LOG_LEVEL=info
`

const exampleCategories = `# askbrain categories: name -> feed uids

categories:
  blog:
    - "824854191681"
`
