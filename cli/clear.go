package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	clearFile      string
	clearNamespace string
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored vector of a dataset's namespace",
	Long: `Delete every stored vector of one namespace. The namespace is given directly or
derived from a dataset file name the same way uploads derive it. Clearing a
namespace that holds nothing succeeds.

Examples:
  semsearch clear --file faq.csv
  semsearch clear --namespace customer_suppor`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().StringVarP(&clearFile, "file", "f", "", "dataset file name to derive the namespace from")
	clearCmd.Flags().StringVarP(&clearNamespace, "namespace", "n", "", "namespace to clear")
	clearCmd.MarkFlagsMutuallyExclusive("file", "namespace")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	namespace := clearNamespace
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if namespace == "" {
		if clearFile == "" {
			return errors.New("one of --file or --namespace is required")
		}
		namespace, err = a.loader.Namespace(filepath.Base(clearFile))
		if err != nil {
			return err
		}
	}

	if err := a.manager.ClearNamespace(ctx, cfg.Index.Name, namespace); err != nil {
		return err
	}
	a.logger.Info("namespace cleared", zap.String("index", cfg.Index.Name), zap.String("namespace", namespace))
	fmt.Printf("Stored data deleted for namespace %q\n", namespace)
	return nil
}
