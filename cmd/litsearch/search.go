// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshintel/litsearch/internal/orchestrate"
	"github.com/meshintel/litsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search literature databases for papers",
	Long: `Search queries the enabled literature databases (Semantic Scholar,
arXiv, PubMed) in parallel, deduplicates the combined results, and ranks
them by hybrid relevance. A failed database degrades coverage but does
not fail the search; the coverage summary reports what each database
contributed.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	// Ctrl-C mid-search yields a partial result instead of nothing.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := engine.Search(ctx, query)
	if err != nil {
		return err
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := orchestrate.WriteResultFile(savePath, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved results to %s\n", savePath)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(result, jsonOutput)
}

func queryFromFlags(cmd *cobra.Command, args []string) (types.SearchQuery, error) {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}

	maxPerSource, _ := cmd.Flags().GetInt("max-per-source")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	language, _ := cmd.Flags().GetString("language")

	query := types.SearchQuery{
		Text:                text,
		MaxResultsPerSource: maxPerSource,
		MaxTotalResults:     maxResults,
		Language:            language,
	}
	if query.IsEmpty() {
		return query, fmt.Errorf("query required: pass it as arguments or with --query")
	}

	const dateFmt = "2006-01-02"
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		t, err := time.Parse(dateFmt, from)
		if err != nil {
			return query, fmt.Errorf("invalid --from %q: %w", from, err)
		}
		query.DateFrom = &t
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		t, err := time.Parse(dateFmt, to)
		if err != nil {
			return query, fmt.Errorf("invalid --to %q: %w", to, err)
		}
		query.DateTo = &t
	}

	if sources, _ := cmd.Flags().GetString("sources"); sources != "" {
		for _, name := range strings.Split(sources, ",") {
			src, err := parseSource(strings.TrimSpace(name))
			if err != nil {
				return query, err
			}
			query.Sources = append(query.Sources, src)
		}
	}
	return query, nil
}

func parseSource(name string) (types.Source, error) {
	for _, src := range types.AllSources() {
		if name == string(src) {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q: use semantic_scholar, arxiv, or pubmed", name)
}

func formatSearchOutput(result *types.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Records) == 0 {
		fmt.Println("No results found.")
		printCoverage(result)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-6s  %-5s  %-9s  %s\n", "Rank", "Score", "Year", "Cites", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for i, r := range result.Records {
		title := truncateTitle(r.Title, 70)
		fmt.Fprintf(os.Stdout, "%-4d  %-6.3f  %-5d  %-9d  %s\n",
			i+1, r.CombinedScore, r.Year, r.CitationCount, title)
		if r.DOI != "" {
			fmt.Fprintf(os.Stdout, "%-29s  doi:%s\n", "", r.DOI)
		}
	}

	printCoverage(result)
	return nil
}

// truncateTitle shortens a title to max runes, never splitting a
// multi-byte character.
func truncateTitle(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-3]) + "..."
}

func printCoverage(result *types.SearchResult) {
	c := result.Coverage
	fmt.Fprintf(os.Stdout, "\n%d results (%d fetched, %d duplicates removed, %.0f%% source coverage)\n",
		len(result.Records), c.TotalBeforeDedup, c.DuplicatesRemoved, c.SourceCoverage*100)

	for _, src := range types.AllSources() {
		status, ok := c.PerSource[src]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-17s %-9s %d results in %v", src, status.State, status.Results, status.Latency.Round(time.Millisecond))
		if status.Error != "" {
			line += " (" + status.Error + ")"
		}
		fmt.Fprintln(os.Stdout, line)
	}

	if c.SemanticDegraded {
		fmt.Fprintln(os.Stdout, "  ranking: keyword-only (embeddings unavailable)")
	}
	if result.Partial {
		fmt.Fprintln(os.Stdout, "  partial: search was interrupted before all sources finished")
	}
}

func init() {
	searchCmd.Flags().String("query", "", "free-text query (alternative to positional arguments)")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().String("sources", "", "restrict to sources (comma-separated: semantic_scholar,arxiv,pubmed)")
	searchCmd.Flags().String("language", "", "language filter, applied where the source supports it")
	searchCmd.Flags().Int("max-per-source", 0, "maximum results per source (0 = config default)")
	searchCmd.Flags().Int("max-results", 0, "maximum total results (0 = config default)")
	searchCmd.Flags().String("save", "", "save the full result to a YAML file")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
