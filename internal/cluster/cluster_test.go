package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqcurate/genebuild/internal/gene"
)

func exon(start, end int64, strand int8) *gene.Exon {
	return &gene.Exon{Start: start, End: end, Strand: strand, Phase: gene.PhaseNone, EndPhase: gene.PhaseNone}
}

// coding builds a transcript whose translation covers every exon end to end.
func coding(id string, strand int8, spans ...[2]int64) *gene.Transcript {
	t := noncoding(id, strand, spans...)
	last := t.Exons[len(t.Exons)-1]
	t.Translation = &gene.Translation{
		StartExon:   0,
		EndExon:     len(t.Exons) - 1,
		StartOffset: 1,
		EndOffset:   last.Length(),
	}
	return t
}

func noncoding(id string, strand int8, spans ...[2]int64) *gene.Transcript {
	t := &gene.Transcript{ID: id}
	for _, s := range spans {
		t.Exons = append(t.Exons, exon(s[0], s[1], strand))
	}
	if strand == -1 {
		// Transcription order for the reverse strand is descending.
		for i, j := 0, len(t.Exons)-1; i < j; i, j = i+1, j-1 {
			t.Exons[i], t.Exons[j] = t.Exons[j], t.Exons[i]
		}
	}
	return t
}

func totalTranscripts(clusters []*Cluster) int {
	n := 0
	for _, c := range clusters {
		n += len(c.Transcripts)
	}
	return n
}

func TestClusterCoding_PartitionComplete(t *testing.T) {
	ts := []*gene.Transcript{
		coding("a", 1, [2]int64{100, 200}, [2]int64{300, 400}),
		coding("b", 1, [2]int64{150, 250}),
		coding("c", 1, [2]int64{1000, 1100}),
		coding("d", -1, [2]int64{100, 200}),
		coding("e", 1, [2]int64{5000, 5100}, [2]int64{5200, 5300}),
	}
	clusters, err := ClusterCoding(ts)
	require.NoError(t, err)

	assert.Equal(t, len(ts), totalTranscripts(clusters), "no transcript dropped or duplicated")
	seen := map[string]int{}
	for _, c := range clusters {
		for _, tx := range c.Transcripts {
			seen[tx.ID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "transcript %s in exactly one cluster", id)
	}
}

func TestClusterCoding_RejectsNonCoding(t *testing.T) {
	_, err := ClusterCoding([]*gene.Transcript{noncoding("nc", 1, [2]int64{100, 200})})
	assert.Error(t, err)
}

func TestCluster_StrandSeparation(t *testing.T) {
	fwd := noncoding("fwd", 1, [2]int64{100, 200})
	rev := noncoding("rev", -1, [2]int64{100, 200})

	clusters, err := ClusterNonCoding([]*gene.Transcript{fwd, rev})
	require.NoError(t, err)
	assert.Len(t, clusters, 2, "identical coordinates on opposite strands never merge")
}

func TestCluster_TransitiveMerge(t *testing.T) {
	// A's second exon is far downstream; B sits inside A's intron, so A and
	// B form separate clusters. C overlaps an exon of each and must fold
	// them into a single cluster when it arrives.
	a := noncoding("a", 1, [2]int64{100, 110}, [2]int64{500, 510})
	b := noncoding("b", 1, [2]int64{150, 160})
	c := noncoding("c", 1, [2]int64{152, 158}, [2]int64{505, 508})

	clusters, err := ClusterNonCoding([]*gene.Transcript{a, b, c})
	require.NoError(t, err)
	require.Len(t, clusters, 1, "bridging transcript merges both clusters")
	assert.Len(t, clusters[0].Transcripts, 3)
}

func TestCluster_NoBridgeStaysSplit(t *testing.T) {
	a := noncoding("a", 1, [2]int64{100, 110}, [2]int64{500, 510})
	b := noncoding("b", 1, [2]int64{150, 160})

	clusters, err := ClusterNonCoding([]*gene.Transcript{a, b})
	require.NoError(t, err)
	assert.Len(t, clusters, 2, "intron-nested transcript without exon overlap stays separate")
}

func TestClusterCoding_SharedIntronOnlyOverlapStaysApart(t *testing.T) {
	// Coding spans intersect but no coding exons overlap: one transcript's
	// exons sit inside the other's intron. They must not cluster.
	outer := coding("outer", 1, [2]int64{100, 200}, [2]int64{900, 1000})
	inner := coding("inner", 1, [2]int64{400, 500})

	clusters, err := ClusterCoding([]*gene.Transcript{outer, inner})
	require.NoError(t, err)
	assert.Len(t, clusters, 2)
}

func TestClusterCoding_UTROverlapIgnored(t *testing.T) {
	// Exons overlap only in the UTR; coding clustering must keep them apart.
	a := &gene.Transcript{
		ID:          "a",
		Exons:       []*gene.Exon{exon(100, 400, 1)},
		Translation: &gene.Translation{StartExon: 0, EndExon: 0, StartOffset: 1, EndOffset: 100}, // CDS 100-199
	}
	b := &gene.Transcript{
		ID:          "b",
		Exons:       []*gene.Exon{exon(300, 600, 1)},
		Translation: &gene.Translation{StartExon: 0, EndExon: 0, StartOffset: 201, EndOffset: 301}, // CDS 500-600
	}
	clusters, err := ClusterCoding([]*gene.Transcript{a, b})
	require.NoError(t, err)
	assert.Len(t, clusters, 2, "UTR-only overlap does not cluster coding transcripts")
}

func TestClusterNonCoding_Empty(t *testing.T) {
	clusters, err := ClusterNonCoding(nil)
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestCheckClusters_Violations(t *testing.T) {
	tx := noncoding("a", 1, [2]int64{100, 200})

	err := CheckClusters([]*Cluster{{}}, 0)
	assert.ErrorIs(t, err, ErrPartition, "empty cluster")

	err = CheckClusters([]*Cluster{{Transcripts: []*gene.Transcript{tx, tx}}}, 2)
	assert.ErrorIs(t, err, ErrPartition, "duplicate transcript")

	err = CheckClusters([]*Cluster{{Transcripts: []*gene.Transcript{tx}}}, 2)
	assert.ErrorIs(t, err, ErrPartition, "count mismatch")

	err = CheckClusters([]*Cluster{{Transcripts: []*gene.Transcript{tx}}}, 1)
	assert.NoError(t, err)
}

func TestGenesFromClusters_Sorted(t *testing.T) {
	c1 := &Cluster{Transcripts: []*gene.Transcript{noncoding("late", 1, [2]int64{5000, 6000})}}
	c2 := &Cluster{Transcripts: []*gene.Transcript{noncoding("early", 1, [2]int64{100, 200})}}

	genes := GenesFromClusters([]*Cluster{c1, c2})
	require.Len(t, genes, 2)
	s0, _ := genes[0].Span()
	s1, _ := genes[1].Span()
	assert.Less(t, s0, s1)
}
