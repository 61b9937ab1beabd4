package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kubun/internal/cli"
)

var explainCmd = &cobra.Command{
	Use:   "explain <heading>...",
	Short: "Score headings against the section phrase sets",
	Long: `Show how each heading scores against the methods, results/discussion and abstract
phrase sets, with the thresholds a match needs. Useful when tuning the sections
overrides in the config file.`,
	Example: `  kubun explain "2. Materials and Methods" "Experimental setup"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		out := cmd.OutOrStdout()
		for _, h := range args {
			report, err := env.c.Assembler.Explain(cmd.Context(), h)
			if err != nil {
				return err
			}
			if env.format == cli.OutputJSON {
				b, err := json.Marshal(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
				continue
			}
			fmt.Fprintf(out, "%q (normalized %q)\n", report.Heading, report.Normalized)
			for _, s := range report.Scores {
				mark := " "
				if s.Match {
					mark = "*"
				}
				fmt.Fprintf(out, "  %s %-30s %.3f  (threshold %.2f)\n", mark, s.Set, s.Score, s.Threshold)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
