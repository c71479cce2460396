// Package reconcile resolves redundancy between transcript pairs drawn from
// two independent annotation sources clustered into one gene.
package reconcile

import (
	"github.com/seqcurate/genebuild/internal/gene"
)

// Decision is the outcome of comparing a primary-source transcript against a
// secondary-source transcript.
type Decision int

const (
	// KeepBoth: the sources disagree on the model; both transcripts stay.
	KeepBoth Decision = iota
	// LinkBoth: identical coding region but different UTR structure; both
	// stay, cross-referenced as sharing a CDS.
	LinkBoth
	// DropFirst: the primary transcript is redundant; keep the secondary.
	DropFirst
	// DropSecond: the secondary transcript is redundant; keep the primary.
	DropSecond
)

func (d Decision) String() string {
	switch d {
	case KeepBoth:
		return "keep-both"
	case LinkBoth:
		return "link-both"
	case DropFirst:
		return "drop-first"
	case DropSecond:
		return "drop-second"
	}
	return "unknown"
}

// rank orders decisions by how definitive they are: an exact drop outcome
// outranks an ambiguous link, which outranks keeping both.
func (d Decision) rank() int {
	switch d {
	case DropFirst, DropSecond:
		return 2
	case LinkBoth:
		return 1
	}
	return 0
}

// MatchPair classifies a transcript pair. It is a pure comparison with no
// side effects; the driver applies the resulting mutation. Rules are
// evaluated in fixed priority order:
//
//  1. Opposite strands or empty transcripts keep both.
//  2. Both non-coding: full exon lists are compared; matching internal
//     structure keeps whichever transcript's terminal exons are not
//     strictly shorter, ties favoring the primary.
//  3. One coding: the coding transcript's translatable exons are compared
//     against the other's full exons; the coding transcript is preferred
//     unless strictly shorter at both ends.
//  4. Both coding: translatable exon counts and translation boundaries must
//     agree, internal coding exons must match exactly, then UTR structure
//     decides which side is dropped.
func MatchPair(a, b *gene.Transcript) Decision {
	if len(a.Exons) == 0 || len(b.Exons) == 0 {
		return KeepBoth
	}
	if a.Strand() != b.Strand() {
		return KeepBoth
	}
	switch {
	case !a.IsCoding() && !b.IsCoding():
		return matchNonCoding(a, b)
	case a.IsCoding() && !b.IsCoding():
		return matchMixed(a, b, DropSecond, DropFirst)
	case !a.IsCoding() && b.IsCoding():
		return matchMixed(b, a, DropFirst, DropSecond)
	default:
		return matchCoding(a, b)
	}
}

func matchNonCoding(a, b *gene.Transcript) Decision {
	ae := gene.AscendingExons(a.Exons)
	be := gene.AscendingExons(b.Exons)
	if len(ae) != len(be) {
		return KeepBoth
	}
	if !internalsMatch(ae, be) {
		return KeepBoth
	}
	aStart, aEnd := ae[0].Start, ae[len(ae)-1].End
	bStart, bEnd := be[0].Start, be[len(be)-1].End
	switch {
	case aStart <= bStart && aEnd >= bEnd:
		return DropSecond
	case bStart <= aStart && bEnd >= aEnd:
		return DropFirst
	default:
		return KeepBoth
	}
}

// matchMixed compares a coding transcript's translatable exons against a
// non-coding transcript's full exons. dropNC drops the non-coding side,
// dropC the coding side.
func matchMixed(coding, noncoding *gene.Transcript, dropNC, dropC Decision) Decision {
	ce := gene.AscendingExons(coding.CodingExons())
	ne := gene.AscendingExons(noncoding.Exons)
	if len(ce) != len(ne) {
		return KeepBoth
	}
	if !internalsMatch(ce, ne) {
		return KeepBoth
	}
	cStart, cEnd := ce[0].Start, ce[len(ce)-1].End
	nStart, nEnd := ne[0].Start, ne[len(ne)-1].End
	if cStart > nStart && cEnd < nEnd {
		return dropC
	}
	return dropNC
}

func matchCoding(a, b *gene.Transcript) Decision {
	ace := gene.AscendingExons(a.CodingExons())
	bce := gene.AscendingExons(b.CodingExons())
	if len(ace) != len(bce) {
		return KeepBoth
	}
	aStart, aEnd := a.CodingSpan()
	bStart, bEnd := b.CodingSpan()
	if aStart != bStart || aEnd != bEnd {
		return KeepBoth
	}
	if len(a.Exons) == 1 && len(b.Exons) == 1 {
		return matchSingleExon(a.Exons[0], b.Exons[0])
	}
	return matchMultiExon(a, b, ace, bce)
}

// matchSingleExon compares two single-exon transcripts whose coding bounds
// already agree. An exact match or a primary-side superset drops the
// secondary; a secondary-side superset drops the primary; divergent UTR on
// both sides keeps the primary, which retains its annotation.
func matchSingleExon(ae, be *gene.Exon) Decision {
	switch {
	case ae.Start == be.Start && ae.End == be.End:
		return DropSecond
	case ae.Start <= be.Start && ae.End >= be.End:
		return DropSecond
	case be.Start <= ae.Start && be.End >= ae.End:
		return DropFirst
	default:
		return DropSecond
	}
}

func matchMultiExon(a, b *gene.Transcript, ace, bce []*gene.Exon) Decision {
	// Internal coding exons must agree exactly; the coding-span check has
	// already pinned the outer coding boundaries, so only splice edges of
	// the terminal coding exons remain.
	if !internalsMatch(ace, bce) {
		return KeepBoth
	}

	ae := gene.AscendingExons(a.Exons)
	be := gene.AscendingExons(b.Exons)
	cStart, cEnd := a.CodingSpan()

	aUTR := ae[0].Start < cStart || ae[len(ae)-1].End > cEnd
	bUTR := be[0].Start < cStart || be[len(be)-1].End > cEnd

	switch {
	case gene.SameStructure(a, b):
		return DropSecond
	case aUTR && !bUTR:
		return DropSecond
	case bUTR && !aUTR:
		return DropFirst
	case !aUTR && !bUTR:
		return DropSecond
	}

	// Both carry UTR with differing structure. If the difference is
	// confined to the outermost exon extents, prefer the primary; a
	// differing internal UTR exon layout means the models genuinely share
	// only their CDS, so both are kept and linked.
	if len(ae) == len(be) && internalsMatch(ae, be) {
		return DropSecond
	}
	return LinkBoth
}

// internalsMatch reports whether two genomically ascending exon lists of
// equal length agree on every internal exon and on the inner splice
// boundaries of the terminal exons. Single-exon lists trivially match.
func internalsMatch(ae, be []*gene.Exon) bool {
	n := len(ae)
	if n != len(be) {
		return false
	}
	if n < 2 {
		return true
	}
	for i := 1; i < n-1; i++ {
		if !ae[i].SameCoords(be[i]) {
			return false
		}
	}
	return ae[0].End == be[0].End && ae[n-1].Start == be[n-1].Start
}
