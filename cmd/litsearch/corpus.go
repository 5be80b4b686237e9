// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meshintel/litsearch/internal/index"
	"github.com/meshintel/litsearch/internal/orchestrate"
	"github.com/meshintel/litsearch/internal/store"
	"github.com/meshintel/litsearch/pkg/types"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the local paper corpus (add, search, stats)",
	Long: `Corpus manages a local SQLite store of retrieved papers. Saved search
results can be added to it and queried offline, either with full-text
search or semantically over stored embeddings.`,
}

// --- add subcommand ---

var corpusAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add papers from a saved search result to the corpus",
	RunE:  runCorpusAdd,
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	fromFile, _ := cmd.Flags().GetString("from-file")
	if fromFile == "" {
		return fmt.Errorf("--from-file required: a YAML file written by 'litsearch search --save'")
	}

	rf, err := orchestrate.ReadResultFile(fromFile)
	if err != nil {
		return err
	}

	s, cfg, err := openCorpus()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	// Records saved from a degraded search carry no vectors; fill them in
	// here when an embedding provider is configured so the corpus stays
	// semantically searchable.
	if provider := embeddingProvider(cfg.Embedding); provider != nil {
		embedded := 0
		for i := range rf.Result.Records {
			if rf.Result.Records[i].Embedding != nil {
				continue
			}
			vec, err := provider.Embed(ctx, rf.Result.Records[i].EmbeddingText())
			if err != nil {
				logger.Warn("embedding paper failed, storing without vector",
					zap.String("id", rf.Result.Records[i].ID), zap.Error(err))
				continue
			}
			rf.Result.Records[i].Embedding = vec
			embedded++
		}
		if embedded > 0 {
			fmt.Printf("Embedded %d papers.\n", embedded)
		}
	}

	n, err := s.SavePapers(ctx, rf.Result.Records)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d papers to the corpus.\n", n)
	return nil
}

// --- search subcommand ---

var corpusSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text or semantic search over the local corpus",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCorpusSearch,
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	term := strings.Join(args, " ")
	if strings.TrimSpace(term) == "" {
		return fmt.Errorf("query required")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	s, cfg, err := openCorpus()
	if err != nil {
		return err
	}
	defer s.Close()

	var records []types.PaperRecord
	if semantic, _ := cmd.Flags().GetBool("semantic"); semantic {
		records, err = semanticCorpusSearch(context.Background(), s, cfg, term, limit)
	} else {
		records, err = s.SearchTitles(context.Background(), term, limit)
	}
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range records {
		fmt.Fprintf(os.Stdout, "%-4d  %-5d  %-17s  %s\n", i+1, r.Year, r.SourceDatabase, r.Title)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(records))
	return nil
}

// semanticCorpusSearch rebuilds the vector index from stored embeddings
// and returns the nearest papers to the query, best first. Each hit's
// SemanticScore carries its similarity to the query.
func semanticCorpusSearch(ctx context.Context, s *store.Store, cfg types.EngineConfig, term string, limit int) ([]types.PaperRecord, error) {
	provider := embeddingProvider(cfg.Embedding)
	if provider == nil {
		return nil, fmt.Errorf("semantic search needs an embedding provider: set embedding.api_key")
	}
	if limit <= 0 {
		limit = cfg.Corpus.MaxResults
	}
	if limit <= 0 {
		limit = 20
	}

	idx := index.NewHNSW(provider.Dimensions())
	loaded, err := s.BuildIndex(ctx, idx)
	if err != nil {
		return nil, err
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no stored embeddings: run 'corpus add' with an embedding provider configured")
	}

	vec, err := provider.Embed(ctx, term)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Query(vec, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	byID, err := s.PapersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]types.PaperRecord, 0, len(hits))
	for _, h := range hits {
		r, ok := byID[h.ID]
		if !ok {
			continue
		}
		r.SemanticScore = h.Score
		records = append(records, r)
	}
	return records, nil
}

// --- stats subcommand ---

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openCorpus()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%d papers in the corpus.\n", n)
		return nil
	},
}

func openCorpus() (*store.Store, types.EngineConfig, error) {
	cfg, err := engineConfig()
	if err != nil {
		return nil, types.EngineConfig{}, err
	}
	corpusCfg := cfg.Corpus
	if dir, _ := corpusCmd.PersistentFlags().GetString("corpus-dir"); dir != "" {
		corpusCfg = types.CorpusConfig{Dir: dir, MaxResults: cfg.Corpus.MaxResults}
	}
	s, err := store.Open(corpusCfg)
	return s, cfg, err
}

func init() {
	corpusCmd.PersistentFlags().String("corpus-dir", "", "corpus directory (default from config)")

	corpusAddCmd.Flags().String("from-file", "", "saved search result YAML to ingest")

	corpusSearchCmd.Flags().Int("limit", 0, "maximum results (0 = config default)")
	corpusSearchCmd.Flags().Bool("json", false, "output results as JSON")
	corpusSearchCmd.Flags().Bool("semantic", false, "rank by embedding similarity instead of full-text match")

	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusStatsCmd)

	rootCmd.AddCommand(corpusCmd)
}
