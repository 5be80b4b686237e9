// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists retrieved papers in a local SQLite corpus. The
// corpus accumulates results across searches: full-text lookup runs over
// an FTS5 mirror of titles and abstracts, and stored embeddings can be
// replayed into a vector index at startup.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/meshintel/litsearch/internal/index"
	"github.com/meshintel/litsearch/pkg/types"
)

const dbFile = "litsearch.db"

// Store manages the corpus SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the corpus database under cfg.Dir, creating the
// schema if it does not exist.
func Open(cfg types.CorpusConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "corpus"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "creating corpus directory")
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, eris.Wrap(err, "opening corpus database")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "creating corpus schema")
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			canonical_id TEXT,
			title TEXT NOT NULL,
			abstract TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT,
			url TEXT,
			pdf_url TEXT,
			citation_count INTEGER,
			source TEXT,
			provenance TEXT,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_canonical ON papers(canonical_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return eris.Wrap(err, "executing schema statement")
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return eris.Wrap(err, "checking FTS table")
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, content=papers, content_rowid=rowid)`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return eris.Wrap(err, "creating FTS infrastructure")
			}
		}
	}
	return nil
}

// SavePapers upserts records into the corpus, keyed by record ID. It
// returns the number of records written.
func (s *Store) SavePapers(ctx context.Context, records []types.PaperRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, canonical_id, title, abstract, authors, year, venue, doi, url, pdf_url, citation_count, source, provenance, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			canonical_id=excluded.canonical_id, title=excluded.title,
			abstract=excluded.abstract, authors=excluded.authors,
			year=excluded.year, venue=excluded.venue, doi=excluded.doi,
			url=excluded.url, pdf_url=excluded.pdf_url,
			citation_count=excluded.citation_count, source=excluded.source,
			provenance=excluded.provenance,
			embedding=coalesce(excluded.embedding, papers.embedding)`)
	if err != nil {
		return 0, eris.Wrap(err, "preparing upsert")
	}
	defer stmt.Close()

	written := 0
	for _, r := range records {
		authorsJSON, _ := json.Marshal(r.Authors)
		provenanceJSON, _ := json.Marshal(r.Provenance)
		_, err := stmt.ExecContext(ctx,
			r.ID, r.CanonicalID, r.Title, r.Abstract, string(authorsJSON),
			r.Year, r.Venue, r.DOI, r.URL, r.PDFURL, r.CitationCount,
			string(r.SourceDatabase), string(provenanceJSON), encodeVector(r.Embedding),
		)
		if err != nil {
			return written, eris.Wrapf(err, "upserting paper %s", r.ID)
		}
		written++
	}
	return written, tx.Commit()
}

// SearchTitles runs a full-text query over stored titles and abstracts,
// most relevant first.
func (s *Store) SearchTitles(ctx context.Context, term string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.canonical_id, p.title, p.abstract, p.authors, p.year, p.venue,
		        p.doi, p.url, p.pdf_url, p.citation_count, p.source, p.provenance
		 FROM papers_fts f JOIN papers p ON p.rowid = f.rowid
		 WHERE papers_fts MATCH ?
		 ORDER BY rank LIMIT ?`,
		ftsQuery(term), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "querying corpus")
	}
	defer rows.Close()

	var records []types.PaperRecord
	for rows.Next() {
		var r types.PaperRecord
		var authorsJSON, provenanceJSON string
		if err := rows.Scan(
			&r.ID, &r.CanonicalID, &r.Title, &r.Abstract, &authorsJSON, &r.Year,
			&r.Venue, &r.DOI, &r.URL, &r.PDFURL, &r.CitationCount,
			&r.SourceDatabase, &provenanceJSON,
		); err != nil {
			return nil, eris.Wrap(err, "scanning corpus row")
		}
		_ = json.Unmarshal([]byte(authorsJSON), &r.Authors)
		_ = json.Unmarshal([]byte(provenanceJSON), &r.Provenance)
		records = append(records, r)
	}
	return records, rows.Err()
}

// PapersByID loads the stored records for the given ids, keyed by id.
// Unknown ids are simply absent from the result.
func (s *Store) PapersByID(ctx context.Context, ids []string) (map[string]types.PaperRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_id, title, abstract, authors, year, venue,
		        doi, url, pdf_url, citation_count, source, provenance
		 FROM papers WHERE id IN (`+placeholders[:len(placeholders)-1]+`)`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "loading papers by id")
	}
	defer rows.Close()

	records := make(map[string]types.PaperRecord, len(ids))
	for rows.Next() {
		var r types.PaperRecord
		var authorsJSON, provenanceJSON string
		if err := rows.Scan(
			&r.ID, &r.CanonicalID, &r.Title, &r.Abstract, &authorsJSON, &r.Year,
			&r.Venue, &r.DOI, &r.URL, &r.PDFURL, &r.CitationCount,
			&r.SourceDatabase, &provenanceJSON,
		); err != nil {
			return nil, eris.Wrap(err, "scanning corpus row")
		}
		_ = json.Unmarshal([]byte(authorsJSON), &r.Authors)
		_ = json.Unmarshal([]byte(provenanceJSON), &r.Provenance)
		records[r.ID] = r
	}
	return records, rows.Err()
}

// BuildIndex replays every stored embedding into idx and returns how
// many vectors were loaded.
func (s *Store) BuildIndex(ctx context.Context, idx index.VectorIndex) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM papers WHERE embedding IS NOT NULL`)
	if err != nil {
		return 0, eris.Wrap(err, "loading embeddings")
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return loaded, eris.Wrap(err, "scanning embedding row")
		}
		vec := decodeVector(blob)
		if vec == nil {
			continue
		}
		if err := idx.Upsert(id, vec); err != nil {
			return loaded, eris.Wrapf(err, "indexing %s", id)
		}
		loaded++
	}
	return loaded, rows.Err()
}

// Count returns the number of papers in the corpus.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "counting papers")
	}
	return n, nil
}

// ftsQuery quotes each term so user input cannot hit FTS5 query syntax.
func ftsQuery(term string) string {
	fields := strings.Fields(term)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

// Embeddings are stored as little-endian float32 blobs.

func encodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
