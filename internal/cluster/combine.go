package cluster

import (
	"sort"

	"github.com/biogo/store/interval"

	"github.com/seqcurate/genebuild/internal/gene"
)

// absorbThreshold is the minimum coding-exon overlap, as a percentage of the
// coding gene's longest translation, required to fold a pseudogene into a
// coding gene. The comparison is strictly greater-than.
const absorbThreshold = 10.0

// geneRange adapts a gene span to the interval tree. The tree indexes
// half-open intervals, so the inclusive end is extended by one.
type geneRange struct {
	g          *gene.Gene
	id         uintptr
	start, end int64
}

func (r geneRange) ID() uintptr { return r.id }

func (r geneRange) Range() interval.IntRange {
	return interval.IntRange{Start: int(r.start), End: int(r.end) + 1}
}

func (r geneRange) Overlap(b interval.IntRange) bool {
	return int(r.end)+1 > b.Start && int(r.start) < b.End
}

// Combine absorbs pseudogene/processed genes into overlapping coding genes
// where a coding-exon/pseudo-exon pair on the same strand overlaps by more
// than absorbThreshold percent of the coding gene's coding length. Absorbed
// genes donate their transcripts to the coding gene and disappear from the
// output; the rest remain standalone. Coding genes may be enlarged in place.
func Combine(coding, pseudo []*gene.Gene) []*gene.Gene {
	tree := &interval.IntTree{}
	for i, g := range coding {
		s, e := g.Span()
		// Insertion cannot fail for well-formed spans; genes come from
		// clusters that always hold at least one transcript.
		_ = tree.Insert(geneRange{g: g, id: uintptr(i + 1), start: s, end: e}, true)
	}
	tree.AdjustRanges()

	out := make([]*gene.Gene, 0, len(coding)+len(pseudo))
	out = append(out, coding...)

	for _, pg := range pseudo {
		ps, pe := pg.Span()
		hits := tree.Get(geneRange{start: ps, end: pe})
		candidates := make([]*gene.Gene, 0, len(hits))
		for _, h := range hits {
			candidates = append(candidates, h.(geneRange).g)
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			is, ie := candidates[i].Span()
			js, je := candidates[j].Span()
			if is != js {
				return is < js
			}
			return ie > je
		})

		absorbed := false
		for _, cg := range candidates {
			if absorbs(cg, pg) {
				cg.Transcripts = append(cg.Transcripts, pg.Transcripts...)
				absorbed = true
				break
			}
		}
		if !absorbed {
			out = append(out, pg)
		}
	}

	gene.SortGenes(out)
	return out
}

func absorbs(cg, pg *gene.Gene) bool {
	denom := gene.CodingLength(cg)
	for _, ct := range cg.Transcripts {
		for _, ce := range ct.CodingExons() {
			for _, pt := range pg.Transcripts {
				for _, pe := range pt.Exons {
					if pe.Strand != ce.Strand {
						continue
					}
					if !gene.Overlaps(ce.Start, ce.End, pe.Start, pe.End) {
						continue
					}
					if gene.OverlapPercent(ce.Start, ce.End, pe.Start, pe.End, denom) > absorbThreshold {
						return true
					}
				}
			}
		}
	}
	return false
}
