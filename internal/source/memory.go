// Package source provides gene sources, the discarded-transcript side
// table, and gene persistence for the merge pipeline.
package source

import (
	"fmt"
	"strings"

	"github.com/seqcurate/genebuild/internal/gene"
)

// ExonKey returns the discarded-set key for a transcript: its exact exon
// coordinates in genomic order. Two transcripts share a key iff every exon
// interval and strand matches.
func ExonKey(t *gene.Transcript) string {
	exons := gene.AscendingExons(t.Exons)
	parts := make([]string, len(exons))
	for i, e := range exons {
		parts[i] = fmt.Sprintf("%d-%d:%d", e.Start, e.End, e.Strand)
	}
	return strings.Join(parts, ",")
}

// MemorySource is an in-memory GeneSource keyed by region name.
type MemorySource struct {
	genes map[string][]*gene.Gene
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{genes: make(map[string][]*gene.Gene)}
}

// AddGene registers a gene under a region name.
func (s *MemorySource) AddGene(region string, g *gene.Gene) {
	s.genes[region] = append(s.genes[region], g)
}

// FetchGenesByType returns the region's genes whose transcripts match the
// biotype filter. Genes are returned with only their matching transcripts;
// a gene with none is omitted. An empty filter matches everything.
func (s *MemorySource) FetchGenesByType(region string, biotypes []string) ([]*gene.Gene, error) {
	want := make(map[string]bool, len(biotypes))
	for _, bt := range biotypes {
		want[bt] = true
	}

	var out []*gene.Gene
	for _, g := range s.genes[region] {
		kept := &gene.Gene{ID: g.ID, Biotype: g.Biotype}
		for _, t := range g.Transcripts {
			if len(want) == 0 || want[t.Biotype] {
				kept.AddTranscript(t)
			}
		}
		if len(kept.Transcripts) > 0 {
			out = append(out, kept)
		}
	}
	return out, nil
}

// MemoryDiscarded is an in-memory discarded-transcript set keyed by exact
// exon coordinates.
type MemoryDiscarded struct {
	keys map[string]bool
}

// NewMemoryDiscarded creates an empty discarded set.
func NewMemoryDiscarded() *MemoryDiscarded {
	return &MemoryDiscarded{keys: make(map[string]bool)}
}

// Add marks a transcript's exon structure as discarded.
func (d *MemoryDiscarded) Add(t *gene.Transcript) {
	d.keys[ExonKey(t)] = true
}

// Contains reports whether a transcript with identical exon coordinates has
// been discarded.
func (d *MemoryDiscarded) Contains(t *gene.Transcript) bool {
	return d.keys[ExonKey(t)]
}

// MemoryStore collects stored genes, keeping the last version per gene ID.
type MemoryStore struct {
	Genes []*gene.Gene
}

// Store records a gene, replacing any previous gene with the same ID.
func (s *MemoryStore) Store(g *gene.Gene) error {
	for i, have := range s.Genes {
		if have.ID == g.ID {
			s.Genes[i] = g
			return nil
		}
	}
	s.Genes = append(s.Genes, g)
	return nil
}
