// Command semnet queries the medical knowledge base from the terminal. Each
// subcommand prints its answer together with an explanation of how it was
// reached; "semnet repl" opens the interactive menu.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/explain"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
)

// app holds what every subcommand shares. The engine is built lazily in
// PersistentPreRunE so flag values are known.
type app struct {
	datasetPath  string
	snapshotPath string
	logLevel     string

	logger    logging.Logger
	engine    *inference.Engine
	explainer *explain.Explainer
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "semnet",
		Short: "Medical diagnosis expert system over a semantic network",
		Long: `semnet answers questions about a semantic network of diseases,
symptoms and treatments, and explains every answer step by step.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.datasetPath, "dataset", dataset.BuiltinMedical, "YAML dataset to load")
	flags.StringVar(&a.snapshotPath, "snapshot", "", "load the knowledge base from a snapshot file instead of a dataset")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newDiagnoseCmd(a),
		newSubtypeCmd(a),
		newSymptomsCmd(a),
		newTreatmentsCmd(a),
		newCategoryCmd(a),
		newInfoCmd(a),
		newConnectCmd(a),
		newSummaryCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newReplCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	if a.engine != nil {
		return nil
	}
	a.logger = logging.NewJSONLogger(os.Stderr, logging.ParseLevel(a.logLevel))

	store, err := a.loadStore(ctx)
	if err != nil {
		return err
	}
	a.engine = inference.New(store, inference.WithLogger(a.logger))
	a.explainer = explain.New(a.engine)
	return nil
}

func (a *app) loadStore(ctx context.Context) (*knowledge.Store, error) {
	if a.snapshotPath == "" {
		return dataset.LoadFile(a.datasetPath, a.logger)
	}
	fs, err := persist.NewFileStore(a.snapshotPath)
	if err != nil {
		return nil, err
	}
	return fs.Load(ctx)
}

func printList(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(names) == 0 {
		fmt.Fprintln(w, "  (none found)")
		return
	}
	for _, n := range names {
		fmt.Fprintf(w, "  • %s\n", n)
	}
}
