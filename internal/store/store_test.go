// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/litsearch/internal/index"
	"github.com/meshintel/litsearch/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.CorpusConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func corpusPaper(id, title, abstract string) types.PaperRecord {
	return types.PaperRecord{
		ID:             id,
		Title:          title,
		Abstract:       abstract,
		Authors:        []string{"First Author"},
		Year:           2023,
		SourceDatabase: types.SourceArxiv,
		Provenance:     []types.Source{types.SourceArxiv},
	}
}

func TestSaveAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.SavePapers(ctx, []types.PaperRecord{
		corpusPaper("arxiv:1", "Contrastive Representation Learning", "Learning representations by contrast."),
		corpusPaper("arxiv:2", "Bayesian Optimization Methods", "Tuning hyperparameters."),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := s.SearchTitles(ctx, "contrastive", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "arxiv:1", records[0].ID)
	assert.Equal(t, []string{"First Author"}, records[0].Authors)
	assert.Equal(t, []types.Source{types.SourceArxiv}, records[0].Provenance)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertReplacesAndKeepsEmbedding(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	withVec := corpusPaper("arxiv:1", "Original Title", "abstract")
	withVec.Embedding = []float32{0.25, -1, 3}
	_, err := s.SavePapers(ctx, []types.PaperRecord{withVec})
	require.NoError(t, err)

	// Re-save without the embedding: metadata updates, vector survives.
	updated := corpusPaper("arxiv:1", "Revised Title", "abstract")
	_, err = s.SavePapers(ctx, []types.PaperRecord{updated})
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := s.SearchTitles(ctx, "revised", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	idx := index.NewHNSW(3)
	loaded, err := s.BuildIndex(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)

	results, err := idx.Query([]float32{0.25, -1, 3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "arxiv:1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestSearchAbstracts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SavePapers(ctx, []types.PaperRecord{
		corpusPaper("pubmed:9", "Cohort Study Design", "A randomized controlled trial of statins."),
	})
	require.NoError(t, err)

	records, err := s.SearchTitles(ctx, "statins", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFTSQuerySanitized(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SavePapers(ctx, []types.PaperRecord{
		corpusPaper("arxiv:1", "Plain Title", ""),
	})
	require.NoError(t, err)

	// FTS5 operators in user input must not be interpreted as syntax.
	_, err = s.SearchTitles(ctx, `title AND NOT ("`, 10)
	assert.NoError(t, err)
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3e-7}
	assert.Equal(t, vec, decodeVector(encodeVector(vec)))
	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
}

func TestSemanticLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ablation := corpusPaper("pubmed:10", "Catheter Ablation Outcomes", "")
	ablation.Embedding = []float32{1, 0}
	imaging := corpusPaper("arxiv:11", "Cardiac Imaging Survey", "")
	imaging.Embedding = []float32{0, 1}

	_, err := s.SavePapers(ctx, []types.PaperRecord{ablation, imaging})
	require.NoError(t, err)

	idx := index.NewHNSW(2)
	loaded, err := s.BuildIndex(ctx, idx)
	require.NoError(t, err)
	require.Equal(t, 2, loaded)

	hits, err := idx.Query([]float32{0.9, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "pubmed:10", hits[0].ID)

	ids := []string{hits[0].ID, hits[1].ID}
	byID, err := s.PapersByID(ctx, ids)
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, "Catheter Ablation Outcomes", byID["pubmed:10"].Title)
	assert.Equal(t, []string{"First Author"}, byID["pubmed:10"].Authors)
}

func TestPapersByIDIgnoresUnknown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SavePapers(ctx, []types.PaperRecord{corpusPaper("arxiv:1", "Known", "")})
	require.NoError(t, err)

	byID, err := s.PapersByID(ctx, []string{"arxiv:1", "arxiv:404"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Known", byID["arxiv:1"].Title)

	empty, err := s.PapersByID(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestBuildIndexSkipsMissingEmbeddings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	plain := corpusPaper("arxiv:1", "No Vector", "")
	withVec := corpusPaper("arxiv:2", "Has Vector", "")
	withVec.Embedding = []float32{1, 0}

	_, err := s.SavePapers(ctx, []types.PaperRecord{plain, withVec})
	require.NoError(t, err)

	idx := index.NewHNSW(2)
	loaded, err := s.BuildIndex(ctx, idx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, idx.Len())
}
