// Package gene defines the in-memory gene model used by the merge pipeline.
package gene

import "sort"

// PhaseNone marks an exon boundary with no reading frame (UTR or non-coding).
const PhaseNone = -1

// Evidence is a supporting-evidence record attached to an exon, recording an
// alignment between the annotated region and a source sequence.
type Evidence struct {
	Name      string // Source sequence name (e.g. a protein or cDNA accession)
	Start     int64  // Genomic start of the aligned block (1-based)
	End       int64  // Genomic end (1-based, inclusive)
	Strand    int8   // +1 or -1
	HitStart  int64  // Start on the hit sequence
	HitEnd    int64  // End on the hit sequence
	HitStrand int8   // Strand on the hit sequence
}

// Exon is a genomic interval with reading-frame phases and supporting evidence.
type Exon struct {
	Start    int64 // Genomic start (1-based)
	End      int64 // Genomic end (1-based, inclusive)
	Strand   int8  // +1 or -1
	Phase    int   // Frame offset at the exon start, PhaseNone if non-coding
	EndPhase int   // Frame offset at the exon end, PhaseNone if non-coding
	Evidence []Evidence
}

// Length returns the exon length in bases.
func (e *Exon) Length() int64 {
	return e.End - e.Start + 1
}

// SameCoords reports whether two exons cover the same interval on the same strand.
func (e *Exon) SameCoords(o *Exon) bool {
	return e.Start == o.Start && e.End == o.End && e.Strand == o.Strand
}

// Matches reports whether two exons are structurally identical: same
// coordinates, strand and phases. Evidence is not part of exon identity.
func (e *Exon) Matches(o *Exon) bool {
	return e.SameCoords(o) && e.Phase == o.Phase && e.EndPhase == o.EndPhase
}

// AddEvidence appends ev unless an identical record is already present.
func (e *Exon) AddEvidence(ev Evidence) {
	for _, have := range e.Evidence {
		if have == ev {
			return
		}
	}
	e.Evidence = append(e.Evidence, ev)
}

// Translation marks the coding region of a transcript. Exons are referenced
// by index into the owning transcript's exon list, so replacing an exon
// object during deduplication cannot leave a dangling reference. Offsets are
// 1-based positions within the referenced exon, counted in transcription
// direction.
type Translation struct {
	StartExon   int
	EndExon     int
	StartOffset int64
	EndOffset   int64
}

// Attrib is a cross-reference annotation on a transcript.
type Attrib struct {
	Code  string
	Value string
}

// Transcript is an ordered sequence of exons with an optional translation.
// Exons are kept in transcription order: ascending genomic start on the
// forward strand, descending on the reverse strand.
type Transcript struct {
	ID          string
	Biotype     string
	Exons       []*Exon
	Translation *Translation
	Attributes  []Attrib
}

// IsCoding reports whether the transcript has a translation.
func (t *Transcript) IsCoding() bool {
	return t.Translation != nil
}

// Strand returns the transcript strand, taken from its first exon.
func (t *Transcript) Strand() int8 {
	if len(t.Exons) == 0 {
		return 0
	}
	return t.Exons[0].Strand
}

// Span returns the genomic extent of the transcript.
func (t *Transcript) Span() (start, end int64) {
	for i, e := range t.Exons {
		if i == 0 || e.Start < start {
			start = e.Start
		}
		if e.End > end {
			end = e.End
		}
	}
	return start, end
}

// CodingSpan returns the genomic bounds of the coding region, or (0, 0) for
// a non-coding transcript.
func (t *Transcript) CodingSpan() (start, end int64) {
	tr := t.Translation
	if tr == nil {
		return 0, 0
	}
	se := t.Exons[tr.StartExon]
	ee := t.Exons[tr.EndExon]
	if t.Strand() == 1 {
		return se.Start + tr.StartOffset - 1, ee.Start + tr.EndOffset - 1
	}
	return ee.End - tr.EndOffset + 1, se.End - tr.StartOffset + 1
}

// CodingExons returns the coding portions of the transcript's exons, trimmed
// to the coding region, in transcription order. The returned exons are fresh
// objects; mutating them does not affect the transcript.
func (t *Transcript) CodingExons() []*Exon {
	if !t.IsCoding() {
		return nil
	}
	cs, ce := t.CodingSpan()
	var out []*Exon
	for _, e := range t.Exons {
		if e.End < cs || e.Start > ce {
			continue
		}
		out = append(out, &Exon{
			Start:    max(e.Start, cs),
			End:      min(e.End, ce),
			Strand:   e.Strand,
			Phase:    e.Phase,
			EndPhase: e.EndPhase,
		})
	}
	return out
}

// CodingLengthBases returns the summed length of the coding exons in bases.
func (t *Transcript) CodingLengthBases() int64 {
	var n int64
	for _, e := range t.CodingExons() {
		n += e.Length()
	}
	return n
}

// AddAttribute records a cross-reference unless an identical one exists.
func (t *Transcript) AddAttribute(code, value string) {
	for _, a := range t.Attributes {
		if a.Code == code && a.Value == value {
			return
		}
	}
	t.Attributes = append(t.Attributes, Attrib{Code: code, Value: value})
}

// HasAttribute reports whether the transcript carries a cross-reference
// with the given code.
func (t *Transcript) HasAttribute(code string) bool {
	for _, a := range t.Attributes {
		if a.Code == code {
			return true
		}
	}
	return false
}

// SameStructure reports whether two transcripts have identical exon
// coordinates throughout.
func SameStructure(a, b *Transcript) bool {
	if len(a.Exons) != len(b.Exons) {
		return false
	}
	ae := AscendingExons(a.Exons)
	be := AscendingExons(b.Exons)
	for i := range ae {
		if !ae[i].SameCoords(be[i]) {
			return false
		}
	}
	return true
}

// AscendingExons returns a copy of exons sorted by genomic start ascending.
func AscendingExons(exons []*Exon) []*Exon {
	out := make([]*Exon, len(exons))
	copy(out, exons)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Gene is a collection of transcripts occupying one locus.
type Gene struct {
	ID          string
	Biotype     string
	Transcripts []*Transcript
}

// Span returns the genomic extent of the gene, the union of its
// transcripts' spans.
func (g *Gene) Span() (start, end int64) {
	for i, t := range g.Transcripts {
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

// Strand returns the gene strand, taken from its first transcript.
func (g *Gene) Strand() int8 {
	if len(g.Transcripts) == 0 {
		return 0
	}
	return g.Transcripts[0].Strand()
}

// AddTranscript attaches a transcript to the gene.
func (g *Gene) AddTranscript(t *Transcript) {
	g.Transcripts = append(g.Transcripts, t)
}

// RemoveTranscript detaches a transcript, matched by identity. It reports
// whether the transcript was present.
func (g *Gene) RemoveTranscript(t *Transcript) bool {
	for i, have := range g.Transcripts {
		if have == t {
			g.Transcripts = append(g.Transcripts[:i], g.Transcripts[i+1:]...)
			return true
		}
	}
	return false
}

// SortGenes orders genes by start ascending, end descending, then ID, so
// pipeline output is deterministic.
func SortGenes(genes []*Gene) {
	sort.SliceStable(genes, func(i, j int) bool {
		is, ie := genes[i].Span()
		js, je := genes[j].Span()
		if is != js {
			return is < js
		}
		if ie != je {
			return ie > je
		}
		return genes[i].ID < genes[j].ID
	})
}
