package main

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kubun/internal/cli"
	"github.com/hyperjump/kubun/internal/models"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored extraction counts, index sizes and service health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		if statusServer != "" {
			var st models.Status
			if err := doJSON(cmd.Context(), http.MethodGet, strings.TrimRight(statusServer, "/")+"/api/v1/status", nil, &st); err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), &st, format)
		}
		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		st, err := env.c.Status(cmd.Context())
		if err != nil {
			return err
		}
		return cli.WriteStatus(cmd.OutOrStdout(), st, format)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "server", "", "server URL (empty = open the local stores)")
	rootCmd.AddCommand(statusCmd)
}
