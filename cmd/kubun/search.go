package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kubun/internal/cli"
	"github.com/hyperjump/kubun/internal/models"
)

var (
	searchServer   string
	searchSection  string
	searchLimit    int
	searchOffset   int
	searchMinScore float64
	searchKeyword  bool
	searchSemantic bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search extracted sections",
	Long: `Search stored extractions with keyword and semantic matching fused into one score.
The query is all arguments joined by spaces. With --server the running API is
queried instead of opening the local indexes.`,
	Example: `  kubun search protein purification
  kubun search --section methods --keyword=false "cell culture conditions"
  kubun search --server http://localhost:8080 -f json binding affinity`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := &models.SearchQuery{
			Query:           buildSearchQuery(args),
			Section:         searchSection,
			Limit:           searchLimit,
			Offset:          searchOffset,
			MinScore:        searchMinScore,
			KeywordEnabled:  searchKeyword,
			SemanticEnabled: searchSemantic,
		}
		if err := query.Validate(); err != nil {
			return err
		}
		format, err := cli.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		if searchServer != "" {
			response, err := searchViaHTTP(cmd.Context(), searchServer, query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
		}

		env, err := setup(cmd.Context(), false, nil)
		if err != nil {
			return err
		}
		defer env.Close()
		response, err := env.c.Engine.Search(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
	},
}

// buildSearchQuery joins all positional args with spaces so multi-word queries work
// the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

var httpClient = &http.Client{Timeout: 60 * time.Second}

func searchViaHTTP(ctx context.Context, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var response models.SearchResponse
	if err := doJSON(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/search", body, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// doJSON sends a request to the API and decodes the JSON response into out.
func doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchServer, "server", "", "server URL (empty = open the local indexes)")
	f.StringVar(&searchSection, "section", "", "restrict to one section: title, abstract, methods, or results_discussion")
	f.IntVarP(&searchLimit, "limit", "n", 10, "number of results")
	f.IntVar(&searchOffset, "offset", 0, "number of results to skip")
	f.Float64Var(&searchMinScore, "min-score", 0, "drop results with a fused score below this")
	f.BoolVar(&searchKeyword, "keyword", true, "enable keyword search")
	f.BoolVar(&searchSemantic, "semantic", true, "enable semantic search")
	rootCmd.AddCommand(searchCmd)
}
