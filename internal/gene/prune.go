package gene

// PruneExons unifies structurally identical exons within a gene into single
// shared objects. Transcripts are walked in order; the first occurrence of a
// given exon structure becomes canonical and later occurrences are replaced
// by a reference to it. Evidence carried by a replaced exon is folded into
// the canonical exon. Translations reference exons by index, so replacement
// cannot invalidate coding boundaries. The operation is idempotent.
func PruneExons(g *Gene) {
	var unique []*Exon
	for _, t := range g.Transcripts {
		for i, e := range t.Exons {
			canonical := findMatching(unique, e)
			if canonical == nil {
				unique = append(unique, e)
				continue
			}
			if canonical == e {
				continue
			}
			for _, ev := range e.Evidence {
				canonical.AddEvidence(ev)
			}
			t.Exons[i] = canonical
		}
	}
}

func findMatching(exons []*Exon, e *Exon) *Exon {
	for _, have := range exons {
		if have.Matches(e) {
			return have
		}
	}
	return nil
}
