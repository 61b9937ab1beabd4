package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hyperjump/kubun/internal/cli"
	"github.com/hyperjump/kubun/internal/config"
)

var flatMethods bool

var extractCmd = &cobra.Command{
	Use:   "extract <file-or-directory>...",
	Short: "Extract sections from documents and store the results",
	Long: `Extract the title, abstract, methods, and results/discussion sections of each file.
Directories are walked recursively for supported formats. Results are stored,
indexed for search, and written to the output archive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), true, func(cfg *config.Config) {
			if flatMethods {
				cfg.Extract.FlatMethods = true
			}
		})
		if err != nil {
			return err
		}
		defer env.Close()

		out := cmd.OutOrStdout()
		var errs error
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if info.IsDir() {
				n, err := env.c.Indexer.ExtractDirectory(cmd.Context(), arg, env.cfg.Watch.Extensions)
				fmt.Fprintf(out, "%s: extracted %d documents\n", arg, n)
				errs = multierr.Append(errs, err)
				continue
			}
			e, err := env.c.Indexer.ExtractFile(cmd.Context(), arg)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", arg, err))
				continue
			}
			if err := cli.WriteExtraction(out, e, env.format); err != nil {
				return err
			}
		}
		return errs
	},
}

func init() {
	extractCmd.Flags().BoolVar(&flatMethods, "flat", false, "return methods as a flat paragraph list")
	rootCmd.AddCommand(extractCmd)
}
