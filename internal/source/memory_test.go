package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqcurate/genebuild/internal/gene"
)

func mkTx(id, biotype string, strand int8, spans ...[2]int64) *gene.Transcript {
	t := &gene.Transcript{ID: id, Biotype: biotype}
	for _, s := range spans {
		t.Exons = append(t.Exons, &gene.Exon{
			Start: s[0], End: s[1], Strand: strand,
			Phase: gene.PhaseNone, EndPhase: gene.PhaseNone,
		})
	}
	if strand == -1 {
		for i, j := 0, len(t.Exons)-1; i < j; i, j = i+1, j-1 {
			t.Exons[i], t.Exons[j] = t.Exons[j], t.Exons[i]
		}
	}
	return t
}

func TestExonKey(t *testing.T) {
	a := mkTx("a", "protein_coding", 1, [2]int64{100, 200}, [2]int64{300, 400})
	b := mkTx("b", "pseudogene", 1, [2]int64{100, 200}, [2]int64{300, 400})
	assert.Equal(t, ExonKey(a), ExonKey(b), "key ignores IDs and biotypes")

	rev := mkTx("r", "protein_coding", -1, [2]int64{100, 200}, [2]int64{300, 400})
	assert.NotEqual(t, ExonKey(a), ExonKey(rev), "strand is part of the key")

	revOther := mkTx("r2", "protein_coding", -1, [2]int64{100, 200}, [2]int64{300, 400})
	assert.Equal(t, ExonKey(rev), ExonKey(revOther), "storage order is normalized")

	shifted := mkTx("s", "protein_coding", 1, [2]int64{100, 201}, [2]int64{300, 400})
	assert.NotEqual(t, ExonKey(a), ExonKey(shifted))
}

func TestMemorySource_BiotypeFilter(t *testing.T) {
	src := NewMemorySource()
	g := &gene.Gene{ID: "g1"}
	g.AddTranscript(mkTx("t1", "protein_coding", 1, [2]int64{100, 200}))
	g.AddTranscript(mkTx("t2", "pseudogene", 1, [2]int64{100, 200}))
	src.AddGene("chr1", g)

	out, err := src.FetchGenesByType("chr1", []string{"protein_coding"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Transcripts, 1)
	assert.Equal(t, "t1", out[0].Transcripts[0].ID)

	out, err = src.FetchGenesByType("chr1", nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0].Transcripts, 2, "empty filter keeps everything")

	out, err = src.FetchGenesByType("chr1", []string{"lincRNA"})
	require.NoError(t, err)
	assert.Empty(t, out, "a gene with no matching transcripts is omitted")

	out, err = src.FetchGenesByType("chr9", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMemoryDiscarded(t *testing.T) {
	d := NewMemoryDiscarded()
	d.Add(mkTx("dropped", "pseudogene", 1, [2]int64{100, 200}))

	assert.True(t, d.Contains(mkTx("other", "protein_coding", 1, [2]int64{100, 200})))
	assert.False(t, d.Contains(mkTx("other", "protein_coding", 1, [2]int64{100, 201})))
}

func TestMemoryStore_ReplacesByID(t *testing.T) {
	s := &MemoryStore{}
	require.NoError(t, s.Store(&gene.Gene{ID: "g1", Biotype: "pseudogene"}))
	require.NoError(t, s.Store(&gene.Gene{ID: "g2"}))
	require.NoError(t, s.Store(&gene.Gene{ID: "g1", Biotype: "protein_coding"}))

	require.Len(t, s.Genes, 2)
	assert.Equal(t, "protein_coding", s.Genes[0].Biotype)
}
