package gene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneExons_SharesIdenticalExons(t *testing.T) {
	shared1 := fwdExon(100, 200)
	shared2 := fwdExon(100, 200) // same structure, distinct object
	t1 := &Transcript{ID: "t1", Exons: []*Exon{shared1, fwdExon(300, 400)}}
	t2 := &Transcript{ID: "t2", Exons: []*Exon{shared2, fwdExon(300, 500)}}
	g := &Gene{Transcripts: []*Transcript{t1, t2}}

	PruneExons(g)

	assert.Same(t, t1.Exons[0], t2.Exons[0], "identical exons unified into one object")
	assert.NotSame(t, t1.Exons[1], t2.Exons[1], "different exons stay distinct")
}

func TestPruneExons_PhaseDistinguishesExons(t *testing.T) {
	a := fwdExon(100, 200)
	b := fwdExon(100, 200)
	b.Phase = 1
	t1 := &Transcript{ID: "t1", Exons: []*Exon{a}}
	t2 := &Transcript{ID: "t2", Exons: []*Exon{b}}
	g := &Gene{Transcripts: []*Transcript{t1, t2}}

	PruneExons(g)

	assert.NotSame(t, t1.Exons[0], t2.Exons[0], "phase mismatch keeps exons separate")
}

func TestPruneExons_MergesEvidence(t *testing.T) {
	a := fwdExon(100, 200)
	a.Evidence = []Evidence{{Name: "protA", Start: 100, End: 200, Strand: 1}}
	b := fwdExon(100, 200)
	b.Evidence = []Evidence{
		{Name: "protA", Start: 100, End: 200, Strand: 1}, // duplicate
		{Name: "protB", Start: 120, End: 180, Strand: 1},
	}
	t1 := &Transcript{ID: "t1", Exons: []*Exon{a}}
	t2 := &Transcript{ID: "t2", Exons: []*Exon{b}}
	g := &Gene{Transcripts: []*Transcript{t1, t2}}

	PruneExons(g)

	require.Same(t, a, t2.Exons[0], "first occurrence is canonical")
	assert.Len(t, a.Evidence, 2, "evidence folded in without duplicates")
}

func TestPruneExons_Idempotent(t *testing.T) {
	mkGene := func() *Gene {
		t1 := &Transcript{
			ID:          "t1",
			Exons:       []*Exon{fwdExon(100, 200), fwdExon(300, 400)},
			Translation: &Translation{StartExon: 0, EndExon: 1, StartOffset: 1, EndOffset: 101},
		}
		t2 := &Transcript{ID: "t2", Exons: []*Exon{fwdExon(100, 200), fwdExon(300, 450)}}
		return &Gene{Transcripts: []*Transcript{t1, t2}}
	}

	g := mkGene()
	PruneExons(g)
	first := []*Exon{g.Transcripts[0].Exons[0], g.Transcripts[0].Exons[1], g.Transcripts[1].Exons[0], g.Transcripts[1].Exons[1]}

	PruneExons(g)
	second := []*Exon{g.Transcripts[0].Exons[0], g.Transcripts[0].Exons[1], g.Transcripts[1].Exons[0], g.Transcripts[1].Exons[1]}

	for i := range first {
		assert.Same(t, first[i], second[i], "second run changes nothing")
	}
}

func TestPruneExons_TranslationSurvives(t *testing.T) {
	// The translation references exons by index, so swapping in a shared
	// exon object must not move the coding region.
	t1 := &Transcript{
		ID:          "t1",
		Exons:       []*Exon{fwdExon(100, 200), fwdExon(300, 400)},
		Translation: &Translation{StartExon: 0, EndExon: 1, StartOffset: 51, EndOffset: 20},
	}
	t2 := &Transcript{
		ID:          "t2",
		Exons:       []*Exon{fwdExon(100, 200), fwdExon(300, 400)},
		Translation: &Translation{StartExon: 0, EndExon: 1, StartOffset: 51, EndOffset: 20},
	}
	g := &Gene{Transcripts: []*Transcript{t1, t2}}

	beforeS, beforeE := t2.CodingSpan()
	PruneExons(g)
	afterS, afterE := t2.CodingSpan()

	assert.Equal(t, beforeS, afterS)
	assert.Equal(t, beforeE, afterE)
	assert.Same(t, t1.Exons[0], t2.Exons[0])
}
