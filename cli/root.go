package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itish2003/semsearch/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "semsearch",
	Short: "Semantic search over uploaded question/answer datasets",
	Long: `semsearch embeds the questions of a Query/Answer CSV into a vector index and
answers free-text questions with the answer of the most similar stored question.

Example usage:
  semsearch serve                    # Start the HTTP API and search page
  semsearch repl --file faq.csv      # Upload and query from the terminal
  semsearch clear --file faq.csv     # Delete the stored vectors of a dataset`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "semsearch.yaml", "config file")
}
