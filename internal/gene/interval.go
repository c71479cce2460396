package gene

// Overlaps reports whether two 1-based inclusive intervals intersect.
// Strand is not considered; callers that need strand-specific overlap
// compare strands separately.
func Overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// OverlapPercent returns the overlap between two intervals as a percentage
// of denom. Intervals that merely touch or are disjoint produce a
// non-positive raw numerator; that is clamped to zero so such pairs can
// never pass a positive threshold. A non-positive denominator yields zero.
func OverlapPercent(aStart, aEnd, bStart, bEnd, denom int64) float64 {
	if denom <= 0 {
		return 0
	}
	num := min(aEnd, bEnd) - max(aStart, bStart)
	if num < 0 {
		num = 0
	}
	return float64(num) / float64(denom) * 100
}

// CodingLength returns the longest translated peptide length among the
// gene's coding transcripts, in residues. Zero if no transcript is coding.
func CodingLength(g *Gene) int64 {
	var longest int64
	for _, t := range g.Transcripts {
		if !t.IsCoding() {
			continue
		}
		if n := t.CodingLengthBases() / 3; n > longest {
			longest = n
		}
	}
	return longest
}
