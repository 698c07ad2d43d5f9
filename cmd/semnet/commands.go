package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-semnet/pkg/explain"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
	"github.com/dd0wney/cluso-semnet/pkg/visualization"
)

func newDiagnoseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose SYMPTOM...",
		Short: "Rank diseases by how many of the observed symptoms they explain",
		Example: `  semnet diagnose Fever Cough ChestPain
  semnet diagnose Fever,Cough`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observed := splitNames(args)
			results, _ := a.engine.Diagnose(observed)
			fmt.Fprintln(cmd.OutOrStdout(), a.explainer.Diagnosis(observed, results))
			return nil
		},
	}
}

func newSubtypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "subtype CONCEPT ANCESTOR",
		Short:   "Check whether CONCEPT is a subtype of ANCESTOR",
		Example: "  semnet subtype Flu Disease",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, trace := a.engine.IsSubtypeOf(args[0], args[1])
			fmt.Fprintln(cmd.OutOrStdout(), explain.Subtype(args[0], args[1], ok, trace))
			return nil
		},
	}
}

func newSymptomsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "symptoms DISEASE",
		Short:   "List the symptoms of a disease",
		Example: "  semnet symptoms Flu",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _ := a.engine.Symptoms(args[0])
			w := cmd.OutOrStdout()
			printList(w, "Symptoms of "+args[0], names)
			fmt.Fprintln(w)
			fmt.Fprintln(w, a.explainer.LastInference())
			return nil
		},
	}
}

func newTreatmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "treatments DISEASE",
		Short:   "List the treatments of a disease",
		Example: "  semnet treatments Pneumonia",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, _ := a.engine.Treatments(args[0])
			w := cmd.OutOrStdout()
			printList(w, "Treatments of "+args[0], names)
			fmt.Fprintln(w)
			fmt.Fprintln(w, a.explainer.LastInference())
			return nil
		},
	}
}

func newCategoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "category CATEGORY",
		Short:   "List the diseases that fall under a category",
		Example: "  semnet category RespiratoryDisease",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, trace := a.engine.DiseasesByCategory(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), explain.Why(
				fmt.Sprintf("Which diseases are a kind of %s?", args[0]),
				strings.Join(names, ", "),
				trace,
			))
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "info CONCEPT",
		Short:   "Show a concept's attributes and relations",
		Example: "  semnet info Fever",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, _ := a.engine.RelatedInfo(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), explain.Concept(args[0], info))
			return nil
		},
	}
}

func newConnectCmd(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:     "connect FROM TO",
		Short:   "Find the relation chains leading from one concept to another",
		Example: "  semnet connect Flu Disease --depth 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 1 {
				return fmt.Errorf("depth must be at least 1, got %d", depth)
			}
			paths, _ := a.engine.FindConnectionDepth(args[0], args[1], depth)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Paths from %s to %s (%d):\n", args[0], args[1], len(paths))
			if len(paths) == 0 {
				fmt.Fprintln(w, "  (none found)")
			}
			for i, p := range paths {
				fmt.Fprintf(w, "  %d. %s\n", i+1, inference.FormatPath(p))
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, a.explainer.LastInference())
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", knowledge.DefaultMaxDepth, "maximum number of relations in a path")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarise the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), explain.Summary(a.engine.Store()))
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the full text report, or write it to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := visualization.NewReporter(a.engine.Store())
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), r.FullReport())
				return nil
			}
			if err := r.WriteReport(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to this file")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		layout string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the knowledge base as a snapshot, positioned JSON or Graphviz DOT",
		Example: `  semnet export --format dot --out semnet.dot
  semnet export --format json --layout circular
  semnet export --format snapshot --out kb.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "json", "dot", "snapshot":
			default:
				return fmt.Errorf("unknown format %q (want json, dot or snapshot)", format)
			}
			store := a.engine.Store()

			if format == "snapshot" {
				if out == "" {
					return fmt.Errorf("--out is required for snapshot export")
				}
				if err := persist.SaveFile(out, store); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Snapshot saved to %s\n", out)
				return nil
			}

			config := visualization.DefaultLayoutConfig()
			l, ok := visualization.LayoutByName(layout, config)
			if !ok {
				return fmt.Errorf("unknown layout %q", layout)
			}
			viz, err := visualization.Visualize(store, l)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if format == "dot" {
				return viz.WriteDOT(w, config)
			}
			data, err := viz.ExportJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, dot or snapshot")
	cmd.Flags().StringVar(&layout, "layout", "hierarchical", "hierarchical or circular")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			newREPL(a, cmd.InOrStdin(), cmd.OutOrStdout()).run()
			return nil
		},
	}
}

// splitNames accepts names as separate arguments, comma lists, or both.
func splitNames(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
