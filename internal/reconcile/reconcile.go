package reconcile

import (
	"fmt"

	"github.com/seqcurate/genebuild/internal/gene"
)

// Cross-reference codes recorded on retained transcripts.
const (
	// AttrSharesCDS links two transcripts with identical coding regions
	// but differing UTR structure.
	AttrSharesCDS = "shares_cds_with"
	// AttrSharesCDSUTR marks a retained transcript whose dropped partner
	// matched it exon for exon.
	AttrSharesCDSUTR = "shares_cds_and_utr_with"
	// AttrMergedFrom marks a transcript that absorbed a dropped partner
	// from the other source.
	AttrMergedFrom = "merged_from"
	// AttrProvenance tags a transcript with no counterpart in the other
	// source.
	AttrProvenance = "provenance"
)

// ProvenanceSingleSource is the AttrProvenance value for unmatched
// primary-source transcripts.
const ProvenanceSingleSource = "single_source"

// TransferEvidence moves supporting-evidence records from a dropped
// transcript's exons onto the kept transcript. When exon counts agree the
// pairing is positional; otherwise each evidence-carrying exon is paired
// with the first same-strand overlapping exon of the kept transcript. An
// evidence-carrying exon with no target aborts with an error naming both
// transcripts.
func TransferEvidence(from, to *gene.Transcript) error {
	if len(from.Exons) == len(to.Exons) {
		for i, fe := range from.Exons {
			for _, ev := range fe.Evidence {
				to.Exons[i].AddEvidence(ev)
			}
		}
		return nil
	}
	for _, fe := range from.Exons {
		if len(fe.Evidence) == 0 {
			continue
		}
		target := overlappingExon(to.Exons, fe)
		if target == nil {
			return fmt.Errorf("evidence transfer from %q to %q: no exon overlaps %d-%d", from.ID, to.ID, fe.Start, fe.End)
		}
		for _, ev := range fe.Evidence {
			target.AddEvidence(ev)
		}
	}
	return nil
}

func overlappingExon(exons []*gene.Exon, e *gene.Exon) *gene.Exon {
	for _, have := range exons {
		if have.Strand == e.Strand && gene.Overlaps(have.Start, have.End, e.Start, e.End) {
			return have
		}
	}
	return nil
}

// ReconcileGene removes redundant transcript pairs within one gene that
// already clusters both sources. Each primary transcript is evaluated
// against every remaining secondary transcript and the single best pairing
// is applied: the losing transcript is dropped from the gene with its
// evidence transferred, a shared-CDS pair is cross-referenced and kept, and
// a primary transcript with no counterpart is tagged as single-source.
// isSecondary distinguishes the two sources by provenance.
func ReconcileGene(g *gene.Gene, isSecondary func(*gene.Transcript) bool) error {
	var primary, secondary []*gene.Transcript
	for _, t := range g.Transcripts {
		if isSecondary(t) {
			secondary = append(secondary, t)
		} else {
			primary = append(primary, t)
		}
	}

	dropped := make(map[*gene.Transcript]bool)
	for _, a := range primary {
		best := KeepBoth
		var match *gene.Transcript
		for _, b := range secondary {
			if dropped[b] {
				continue
			}
			if d := MatchPair(a, b); d.rank() > best.rank() {
				best, match = d, b
			}
		}

		switch best {
		case DropFirst:
			if err := TransferEvidence(a, match); err != nil {
				return err
			}
			annotateKept(match, a)
			g.RemoveTranscript(a)
		case DropSecond:
			if err := TransferEvidence(match, a); err != nil {
				return err
			}
			annotateKept(a, match)
			g.RemoveTranscript(match)
			dropped[match] = true
		case LinkBoth:
			a.AddAttribute(AttrSharesCDS, match.ID)
			match.AddAttribute(AttrSharesCDS, a.ID)
		default:
			a.AddAttribute(AttrProvenance, ProvenanceSingleSource)
		}
	}
	return nil
}

func annotateKept(kept, droppedT *gene.Transcript) {
	if gene.SameStructure(kept, droppedT) {
		kept.AddAttribute(AttrSharesCDSUTR, droppedT.ID)
	} else {
		kept.AddAttribute(AttrSharesCDS, droppedT.ID)
	}
	kept.AddAttribute(AttrMergedFrom, droppedT.ID)
}
