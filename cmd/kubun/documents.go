package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hyperjump/kubun/internal/cli"
	"github.com/hyperjump/kubun/internal/export"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/storage"
)

const pageSize = 100

var (
	listOffset int
	listLimit  int
	exportPath string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored extractions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		list, err := env.c.Storage.ListExtractions(cmd.Context(), listOffset, listLimit)
		if err != nil {
			return err
		}
		return cli.WriteExtractions(cmd.OutOrStdout(), list, env.format)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show one stored extraction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		e, err := env.c.Storage.GetExtraction(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteExtraction(cmd.OutOrStdout(), e, env.format)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id-or-file>...",
	Short: "Delete extractions by document ID or source file path",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		var errs error
		for _, arg := range args {
			if info, statErr := os.Stat(arg); statErr == nil && info.Mode().IsRegular() {
				err = env.c.Indexer.DeleteFile(cmd.Context(), arg)
			} else {
				err = env.c.Indexer.Delete(cmd.Context(), arg)
			}
			if errors.Is(err, storage.ErrNotFound) {
				err = fmt.Errorf("%s: not found", arg)
			}
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", arg)
		}
		return errs
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every stored extraction to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		var all []*models.Extraction
		for offset := 0; ; offset += pageSize {
			page, err := env.c.Storage.ListExtractions(cmd.Context(), offset, pageSize)
			if err != nil {
				return err
			}
			all = append(all, page...)
			if len(page) < pageSize {
				break
			}
		}
		f, err := os.Create(exportPath)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, f.Close()) }()
		if err := export.WriteXLSX(f, all); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d extractions to %s\n", len(all), exportPath)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the keyword and vector indexes from stored extractions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		n, err := env.c.Indexer.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d extractions\n", n)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kubun version %s\n", version)
	},
}

func init() {
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "number of extractions to skip")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum number of extractions")
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "kubun-extractions.xlsx", "workbook path")
	rootCmd.AddCommand(listCmd, showCmd, deleteCmd, exportCmd, reindexCmd, versionCmd)
}
