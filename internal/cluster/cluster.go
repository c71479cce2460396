// Package cluster groups transcripts into gene-level clusters by exon overlap.
package cluster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/seqcurate/genebuild/internal/gene"
)

// ErrPartition signals a broken clustering post-condition: a transcript
// dropped, duplicated across clusters, or an empty cluster. It indicates a
// bug in the clustering algorithm, not bad input.
var ErrPartition = errors.New("cluster partition invariant violated")

// Cluster is a transient grouping of transcripts believed to form one gene.
type Cluster struct {
	Transcripts []*gene.Transcript
}

// Span returns the genomic extent of the cluster.
func (c *Cluster) Span() (start, end int64) {
	for i, t := range c.Transcripts {
		s, e := t.Span()
		if i == 0 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}
	return start, end
}

// run holds the state of one clustering invocation. The coding-exon cache
// belongs to the run and dies with it, so independent invocations never see
// each other's entries.
type run struct {
	coding      bool
	codingExons map[*gene.Transcript][]*gene.Exon
}

// ClusterCoding clusters coding transcripts by coding-exon overlap: a
// transcript joins a cluster iff its coding span intersects a member's
// coding span and at least one coding exon pair on the same strand
// overlaps. Transcripts without a translation are rejected.
func ClusterCoding(ts []*gene.Transcript) ([]*Cluster, error) {
	for _, t := range ts {
		if !t.IsCoding() {
			return nil, fmt.Errorf("coding clustering given non-coding transcript %q", t.ID)
		}
	}
	r := &run{coding: true, codingExons: make(map[*gene.Transcript][]*gene.Exon)}
	return r.cluster(ts)
}

// ClusterNonCoding clusters transcripts by full genomic span and complete
// exon lists, with no translation requirement.
func ClusterNonCoding(ts []*gene.Transcript) ([]*Cluster, error) {
	r := &run{}
	return r.cluster(ts)
}

func (r *run) cluster(ts []*gene.Transcript) ([]*Cluster, error) {
	sorted := make([]*gene.Transcript, len(ts))
	copy(sorted, ts)
	sort.SliceStable(sorted, func(i, j int) bool {
		is, ie := r.bounds(sorted[i])
		js, je := r.bounds(sorted[j])
		if is != js {
			return is < js
		}
		return ie > je
	})

	var clusters []*Cluster
	for _, t := range sorted {
		var matched []int
		for i, c := range clusters {
			if r.matches(t, c) {
				matched = append(matched, i)
			}
		}
		switch len(matched) {
		case 0:
			clusters = append(clusters, &Cluster{Transcripts: []*gene.Transcript{t}})
		case 1:
			c := clusters[matched[0]]
			c.Transcripts = append(c.Transcripts, t)
		default:
			// The new transcript bridges several clusters; fold them into
			// one so a gene with an internally skipped exon is not
			// fragmented.
			head := clusters[matched[0]]
			for k := len(matched) - 1; k >= 1; k-- {
				i := matched[k]
				head.Transcripts = append(head.Transcripts, clusters[i].Transcripts...)
				clusters = append(clusters[:i], clusters[i+1:]...)
			}
			head.Transcripts = append(head.Transcripts, t)
		}
	}

	if err := CheckClusters(clusters, len(ts)); err != nil {
		return nil, err
	}
	return clusters, nil
}

func (r *run) bounds(t *gene.Transcript) (int64, int64) {
	if r.coding {
		return t.CodingSpan()
	}
	return t.Span()
}

func (r *run) exons(t *gene.Transcript) []*gene.Exon {
	if !r.coding {
		return t.Exons
	}
	if cached, ok := r.codingExons[t]; ok {
		return cached
	}
	ce := t.CodingExons()
	r.codingExons[t] = ce
	return ce
}

func (r *run) matches(t *gene.Transcript, c *Cluster) bool {
	ts, te := r.bounds(t)
	for _, m := range c.Transcripts {
		ms, me := r.bounds(m)
		if !gene.Overlaps(ts, te, ms, me) {
			continue
		}
		if exonsOverlap(r.exons(t), r.exons(m)) {
			return true
		}
	}
	return false
}

func exonsOverlap(a, b []*gene.Exon) bool {
	for _, ae := range a {
		for _, be := range b {
			if ae.Strand != be.Strand {
				continue
			}
			if gene.Overlaps(ae.Start, ae.End, be.Start, be.End) {
				return true
			}
		}
	}
	return false
}

// CheckClusters verifies the clustering post-condition: the clusters
// partition the input exactly. Total membership must equal want, no
// transcript may appear twice, and no cluster may be empty.
func CheckClusters(clusters []*Cluster, want int) error {
	seen := make(map[*gene.Transcript]bool, want)
	total := 0
	for i, c := range clusters {
		if len(c.Transcripts) == 0 {
			return fmt.Errorf("%w: cluster %d is empty", ErrPartition, i)
		}
		for _, t := range c.Transcripts {
			if seen[t] {
				return fmt.Errorf("%w: transcript %q in more than one cluster", ErrPartition, t.ID)
			}
			seen[t] = true
			total++
		}
	}
	if total != want {
		return fmt.Errorf("%w: clustered %d transcripts, expected %d", ErrPartition, total, want)
	}
	return nil
}

// GenesFromClusters builds one gene per cluster, ordered by genomic start
// ascending with end-descending tiebreak.
func GenesFromClusters(clusters []*Cluster) []*gene.Gene {
	genes := make([]*gene.Gene, 0, len(clusters))
	for _, c := range clusters {
		g := &gene.Gene{}
		g.Transcripts = append(g.Transcripts, c.Transcripts...)
		genes = append(genes, g)
	}
	gene.SortGenes(genes)
	return genes
}
