package source

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/seqcurate/genebuild/internal/gene"
)

// Store persists genes in a DuckDB database and doubles as a GeneSource and
// the discarded-transcript side table. An empty path opens an in-memory
// database.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (or creates) a DuckDB-backed store and ensures the schema
// exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS genes (
			id VARCHAR PRIMARY KEY,
			biotype VARCHAR,
			start BIGINT,
			end_ BIGINT,
			strand TINYINT
		);

		CREATE TABLE IF NOT EXISTS transcripts (
			id VARCHAR PRIMARY KEY,
			gene_id VARCHAR,
			biotype VARCHAR,
			start_exon INTEGER,
			end_exon INTEGER,
			start_offset BIGINT,
			end_offset BIGINT
		);

		CREATE TABLE IF NOT EXISTS exons (
			transcript_id VARCHAR,
			idx INTEGER,
			start BIGINT,
			end_ BIGINT,
			strand TINYINT,
			phase TINYINT,
			end_phase TINYINT,
			PRIMARY KEY (transcript_id, idx)
		);

		CREATE TABLE IF NOT EXISTS evidence (
			transcript_id VARCHAR,
			exon_idx INTEGER,
			name VARCHAR,
			start BIGINT,
			end_ BIGINT,
			strand TINYINT,
			hit_start BIGINT,
			hit_end BIGINT,
			hit_strand TINYINT
		);

		CREATE TABLE IF NOT EXISTS attributes (
			transcript_id VARCHAR,
			code VARCHAR,
			value VARCHAR
		);

		CREATE TABLE IF NOT EXISTS discarded (
			exon_key VARCHAR PRIMARY KEY
		);

		CREATE INDEX IF NOT EXISTS idx_genes_pos ON genes(start, end_);
		CREATE INDEX IF NOT EXISTS idx_transcripts_gene ON transcripts(gene_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Store persists a gene and its transcripts, exons, evidence and
// attributes. Storing the same gene ID again replaces the previous rows,
// making the operation idempotent per gene identity.
func (s *Store) Store(g *gene.Gene) error {
	if g.ID == "" {
		return fmt.Errorf("store gene: empty gene ID")
	}
	if err := s.delete(g.ID); err != nil {
		return err
	}

	start, end := g.Span()
	if _, err := s.db.Exec(`
		INSERT INTO genes (id, biotype, start, end_, strand) VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Biotype, start, end, g.Strand()); err != nil {
		return fmt.Errorf("insert gene %s: %w", g.ID, err)
	}

	for _, t := range g.Transcripts {
		var startExon, endExon, startOffset, endOffset interface{}
		if tr := t.Translation; tr != nil {
			startExon, endExon = tr.StartExon, tr.EndExon
			startOffset, endOffset = tr.StartOffset, tr.EndOffset
		}
		if _, err := s.db.Exec(`
			INSERT INTO transcripts (id, gene_id, biotype, start_exon, end_exon, start_offset, end_offset)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, g.ID, t.Biotype, startExon, endExon, startOffset, endOffset); err != nil {
			return fmt.Errorf("insert transcript %s: %w", t.ID, err)
		}

		for i, e := range t.Exons {
			if _, err := s.db.Exec(`
				INSERT INTO exons (transcript_id, idx, start, end_, strand, phase, end_phase)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, t.ID, i, e.Start, e.End, e.Strand, e.Phase, e.EndPhase); err != nil {
				return fmt.Errorf("insert exon %d of %s: %w", i, t.ID, err)
			}
			for _, ev := range e.Evidence {
				if _, err := s.db.Exec(`
					INSERT INTO evidence (transcript_id, exon_idx, name, start, end_, strand, hit_start, hit_end, hit_strand)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				`, t.ID, i, ev.Name, ev.Start, ev.End, ev.Strand, ev.HitStart, ev.HitEnd, ev.HitStrand); err != nil {
					return fmt.Errorf("insert evidence for %s: %w", t.ID, err)
				}
			}
		}

		for _, a := range t.Attributes {
			if _, err := s.db.Exec(`
				INSERT INTO attributes (transcript_id, code, value) VALUES (?, ?, ?)
			`, t.ID, a.Code, a.Value); err != nil {
				return fmt.Errorf("insert attribute for %s: %w", t.ID, err)
			}
		}
	}
	return nil
}

func (s *Store) delete(geneID string) error {
	rows, err := s.db.Query(`SELECT id FROM transcripts WHERE gene_id = ?`, geneID)
	if err != nil {
		return fmt.Errorf("query transcripts of %s: %w", geneID, err)
	}
	var txIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		txIDs = append(txIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range txIDs {
		for _, table := range []string{"evidence", "attributes", "exons"} {
			if _, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE transcript_id = ?`, table), id); err != nil {
				return fmt.Errorf("delete %s of %s: %w", table, id, err)
			}
		}
	}
	if _, err := s.db.Exec(`DELETE FROM transcripts WHERE gene_id = ?`, geneID); err != nil {
		return fmt.Errorf("delete transcripts of %s: %w", geneID, err)
	}
	if _, err := s.db.Exec(`DELETE FROM genes WHERE id = ?`, geneID); err != nil {
		return fmt.Errorf("delete gene %s: %w", geneID, err)
	}
	return nil
}

// FetchGenesByType returns stored genes overlapping region whose
// transcripts carry one of the given biotypes, making a previously built
// database usable as a pipeline source.
func (s *Store) FetchGenesByType(region string, biotypes []string) ([]*gene.Gene, error) {
	_, start, end, err := parseRegion(region)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, biotype FROM genes
		WHERE start <= ? AND end_ >= ?
		ORDER BY start, end_ DESC, id
	`, end, start)
	if err != nil {
		return nil, fmt.Errorf("query genes: %w", err)
	}
	defer rows.Close()

	want := make(map[string]bool, len(biotypes))
	for _, bt := range biotypes {
		want[bt] = true
	}

	var genes []*gene.Gene
	for rows.Next() {
		g := &gene.Gene{}
		if err := rows.Scan(&g.ID, &g.Biotype); err != nil {
			return nil, fmt.Errorf("scan gene: %w", err)
		}
		if err := s.loadTranscripts(g, want); err != nil {
			return nil, err
		}
		if len(g.Transcripts) > 0 {
			genes = append(genes, g)
		}
	}
	return genes, rows.Err()
}

func (s *Store) loadTranscripts(g *gene.Gene, want map[string]bool) error {
	rows, err := s.db.Query(`
		SELECT id, biotype, start_exon, end_exon, start_offset, end_offset
		FROM transcripts WHERE gene_id = ? ORDER BY id
	`, g.ID)
	if err != nil {
		return fmt.Errorf("query transcripts of %s: %w", g.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		t := &gene.Transcript{}
		var startExon, endExon, startOffset, endOffset sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Biotype, &startExon, &endExon, &startOffset, &endOffset); err != nil {
			return fmt.Errorf("scan transcript: %w", err)
		}
		if len(want) > 0 && !want[t.Biotype] {
			continue
		}
		if startExon.Valid {
			t.Translation = &gene.Translation{
				StartExon:   int(startExon.Int64),
				EndExon:     int(endExon.Int64),
				StartOffset: startOffset.Int64,
				EndOffset:   endOffset.Int64,
			}
		}
		if err := s.loadExons(t); err != nil {
			return err
		}
		if err := s.loadAttributes(t); err != nil {
			return err
		}
		g.AddTranscript(t)
	}
	return rows.Err()
}

func (s *Store) loadExons(t *gene.Transcript) error {
	rows, err := s.db.Query(`
		SELECT idx, start, end_, strand, phase, end_phase
		FROM exons WHERE transcript_id = ? ORDER BY idx
	`, t.ID)
	if err != nil {
		return fmt.Errorf("query exons of %s: %w", t.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var idx int
		e := &gene.Exon{}
		if err := rows.Scan(&idx, &e.Start, &e.End, &e.Strand, &e.Phase, &e.EndPhase); err != nil {
			return fmt.Errorf("scan exon: %w", err)
		}
		if err := s.loadEvidence(t.ID, idx, e); err != nil {
			return err
		}
		t.Exons = append(t.Exons, e)
	}
	return rows.Err()
}

func (s *Store) loadEvidence(txID string, idx int, e *gene.Exon) error {
	rows, err := s.db.Query(`
		SELECT name, start, end_, strand, hit_start, hit_end, hit_strand
		FROM evidence WHERE transcript_id = ? AND exon_idx = ?
	`, txID, idx)
	if err != nil {
		return fmt.Errorf("query evidence of %s: %w", txID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev gene.Evidence
		if err := rows.Scan(&ev.Name, &ev.Start, &ev.End, &ev.Strand, &ev.HitStart, &ev.HitEnd, &ev.HitStrand); err != nil {
			return fmt.Errorf("scan evidence: %w", err)
		}
		e.Evidence = append(e.Evidence, ev)
	}
	return rows.Err()
}

func (s *Store) loadAttributes(t *gene.Transcript) error {
	rows, err := s.db.Query(`
		SELECT code, value FROM attributes WHERE transcript_id = ?
	`, t.ID)
	if err != nil {
		return fmt.Errorf("query attributes of %s: %w", t.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a gene.Attrib
		if err := rows.Scan(&a.Code, &a.Value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		t.Attributes = append(t.Attributes, a)
	}
	return rows.Err()
}

// AddDiscarded marks a transcript's exon structure as discarded.
func (s *Store) AddDiscarded(t *gene.Transcript) error {
	_, err := s.db.Exec(`
		INSERT INTO discarded (exon_key) VALUES (?)
		ON CONFLICT DO NOTHING
	`, ExonKey(t))
	if err != nil {
		return fmt.Errorf("insert discarded: %w", err)
	}
	return nil
}

// Contains reports whether a transcript with identical exon coordinates is
// in the discarded side table. Lookup errors count as not discarded.
func (s *Store) Contains(t *gene.Transcript) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM discarded WHERE exon_key = ?`, ExonKey(t)).Scan(&n)
	return err == nil && n > 0
}

// GeneCount returns the number of stored genes.
func (s *Store) GeneCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM genes`).Scan(&n)
	return n, err
}
