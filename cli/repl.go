package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/itish2003/semsearch/models"
	"github.com/itish2003/semsearch/services"
)

const queryPrompt = "Enter your query about the data (or type 'exit' to quit):"

var replFile string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Upload a dataset and query it from the terminal",
	Long: `Upload a Query/Answer CSV, wait for it to be indexed, then answer queries typed
at the prompt until 'exit' is entered.

Examples:
  semsearch repl --file faq.csv`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().StringVarP(&replFile, "file", "f", "", "CSV dataset with Query and Answer columns")
	_ = replCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sess, err := a.service.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("vector index unavailable: %w", err)
	}
	defer a.service.EndSession(sess.ID)

	f, err := os.Open(replFile)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	fmt.Println("Dataset Processing Started...")
	bar := progressbar.NewOptions(100,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	result, err := a.service.IngestDataset(ctx, sess.ID, filepath.Base(replFile), f, func(percent int) {
		_ = bar.Set(percent)
	})
	if err != nil {
		var upsertErr *services.UpsertError
		if errors.As(err, &upsertErr) {
			fmt.Printf("\n%d of %d rows were stored before the failure.\n", upsertErr.RowsWritten, upsertErr.Total)
		}
		return err
	}
	if !result.Embedded {
		_ = bar.Set(100)
	}
	fmt.Printf("Dataset Processing Completed... (%d rows, namespace %q)\n", result.Rows, result.Namespace)
	if result.Dropped > 0 {
		fmt.Printf("Only the first %d rows were used; %d were ignored.\n", result.Rows, result.Dropped)
	}

	return queryLoop(ctx, a.service, sess.ID, os.Stdin, cmd.OutOrStdout())
}

func queryLoop(ctx context.Context, service services.SearchService, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintln(out, queryPrompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "exit") {
			return nil
		}

		answer, err := service.Ask(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		switch answer.Status {
		case models.StatusAnswered:
			fmt.Fprintln(out, "Query Results:")
			fmt.Fprintln(out, answer.Answer)
		case models.StatusNoMatch:
			fmt.Fprintln(out, "No answer found.")
		}
	}
}
