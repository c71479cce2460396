package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqcurate/genebuild/internal/gene"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storedGene() *gene.Gene {
	t1 := mkTx("chr1.g1.t1", "protein_coding", 1, [2]int64{100, 200}, [2]int64{300, 400})
	t1.Translation = &gene.Translation{StartExon: 0, EndExon: 1, StartOffset: 51, EndOffset: 51}
	t1.Exons[0].Phase = gene.PhaseNone
	t1.Exons[0].EndPhase = 0
	t1.Exons[1].Phase = 0
	t1.Exons[1].EndPhase = gene.PhaseNone
	t1.Exons[0].Evidence = []gene.Evidence{{
		Name: "protA", Start: 150, End: 200, Strand: 1,
		HitStart: 1, HitEnd: 17, HitStrand: 1,
	}}
	t1.Attributes = []gene.Attrib{{Code: "provenance", Value: "single_source"}}

	t2 := mkTx("chr1.g1.t2", "pseudogene_curated", -1, [2]int64{100, 200}, [2]int64{300, 400})

	g := &gene.Gene{ID: "chr1.g1", Biotype: "protein_coding_merged"}
	g.AddTranscript(t1)
	g.AddTranscript(t2)
	return g
}

func TestStore_RoundTrip(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.Store(storedGene()))

	genes, err := s.FetchGenesByType("chr1", nil)
	require.NoError(t, err)
	require.Len(t, genes, 1)

	g := genes[0]
	assert.Equal(t, "chr1.g1", g.ID)
	assert.Equal(t, "protein_coding_merged", g.Biotype)
	require.Len(t, g.Transcripts, 2)

	t1 := g.Transcripts[0]
	assert.Equal(t, "chr1.g1.t1", t1.ID)
	require.NotNil(t, t1.Translation)
	cs, ce := t1.CodingSpan()
	assert.Equal(t, int64(150), cs)
	assert.Equal(t, int64(350), ce)
	assert.Equal(t, gene.PhaseNone, t1.Exons[0].Phase)
	assert.Equal(t, 0, t1.Exons[1].Phase)

	require.Len(t, t1.Exons[0].Evidence, 1)
	ev := t1.Exons[0].Evidence[0]
	assert.Equal(t, "protA", ev.Name)
	assert.Equal(t, int64(17), ev.HitEnd)

	require.Len(t, t1.Attributes, 1)
	assert.Equal(t, "provenance", t1.Attributes[0].Code)

	t2 := g.Transcripts[1]
	assert.Nil(t, t2.Translation)
	assert.Equal(t, int8(-1), t2.Strand())
	assert.Equal(t, int64(300), t2.Exons[0].Start, "transcription order survives the round trip")
}

func TestStore_Idempotent(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.Store(storedGene()))
	require.NoError(t, s.Store(storedGene()))

	n, err := s.GeneCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	genes, err := s.FetchGenesByType("chr1", nil)
	require.NoError(t, err)
	require.Len(t, genes, 1)
	require.Len(t, genes[0].Transcripts, 2)
	assert.Len(t, genes[0].Transcripts[0].Exons[0].Evidence, 1, "evidence rows are replaced, not duplicated")
}

func TestStore_RejectsEmptyGeneID(t *testing.T) {
	s := openInMemory(t)
	err := s.Store(&gene.Gene{})
	require.Error(t, err)
}

func TestStore_FetchFilters(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.Store(storedGene()))

	genes, err := s.FetchGenesByType("chr1", []string{"protein_coding"})
	require.NoError(t, err)
	require.Len(t, genes, 1)
	require.Len(t, genes[0].Transcripts, 1)
	assert.Equal(t, "chr1.g1.t1", genes[0].Transcripts[0].ID)

	genes, err = s.FetchGenesByType("chr1", []string{"lincRNA"})
	require.NoError(t, err)
	assert.Empty(t, genes)

	genes, err = s.FetchGenesByType("chr1:500-900", nil)
	require.NoError(t, err)
	assert.Empty(t, genes, "window past the gene span matches nothing")

	genes, err = s.FetchGenesByType("chr1:350-360", nil)
	require.NoError(t, err)
	assert.Len(t, genes, 1, "window inside the gene span matches")
}

func TestStore_DiscardedSet(t *testing.T) {
	s := openInMemory(t)

	dropped := mkTx("dropped", "pseudogene", 1, [2]int64{100, 200}, [2]int64{300, 400})
	require.NoError(t, s.AddDiscarded(dropped))
	require.NoError(t, s.AddDiscarded(dropped), "re-adding is a no-op")

	assert.True(t, s.Contains(mkTx("other", "protein_coding", 1, [2]int64{100, 200}, [2]int64{300, 400})))
	assert.False(t, s.Contains(mkTx("other", "protein_coding", 1, [2]int64{100, 200})))
}
