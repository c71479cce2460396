package source

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/seqcurate/genebuild/internal/gene"
)

// GTFSource loads gene models from a GTF annotation file, plain or gzipped.
// It implements build.GeneSource; the region argument selects a chromosome
// or a chromosome span ("12" or "12:1000-2000000").
type GTFSource struct {
	path string
}

// NewGTFSource creates a source reading from the given GTF path.
func NewGTFSource(path string) *GTFSource {
	return &GTFSource{path: path}
}

// FetchGenesByType returns the genes overlapping region whose transcripts
// carry one of the given biotypes. An empty filter keeps everything.
func (s *GTFSource) FetchGenesByType(region string, biotypes []string) ([]*gene.Gene, error) {
	chrom, start, end, err := parseRegion(region)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(s.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	want := make(map[string]bool, len(biotypes))
	for _, bt := range biotypes {
		want[bt] = true
	}

	return s.parse(reader, chrom, start, end, want)
}

// txBuild accumulates one transcript's features during the scan.
type txBuild struct {
	id       string
	geneID   string
	biotype  string
	exons    []*gene.Exon
	cdsStart int64
	cdsEnd   int64
}

func (s *GTFSource) parse(reader io.Reader, chrom string, start, end int64, want map[string]bool) ([]*gene.Gene, error) {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	builds := make(map[string]*txBuild)
	var txOrder []string
	geneBiotypes := make(map[string]string)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return nil, fmt.Errorf("GTF line %d: expected 9 fields, got %d", lineNum, len(fields))
		}
		if fields[0] != chrom {
			continue
		}

		featStart, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GTF line %d: bad start: %w", lineNum, err)
		}
		featEnd, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GTF line %d: bad end: %w", lineNum, err)
		}
		if !gene.Overlaps(featStart, featEnd, start, end) {
			continue
		}

		var strand int8 = 1
		if fields[6] == "-" {
			strand = -1
		}

		attrs := parseAttributes(fields[8])

		switch fields[2] {
		case "gene":
			if id := attrs["gene_id"]; id != "" {
				geneBiotypes[id] = attrs["gene_biotype"]
			}
		case "exon", "CDS":
			txID := attrs["transcript_id"]
			if txID == "" {
				continue
			}
			tb, ok := builds[txID]
			if !ok {
				bt := attrs["transcript_biotype"]
				if bt == "" {
					bt = attrs["gene_biotype"]
				}
				tb = &txBuild{id: txID, geneID: attrs["gene_id"], biotype: bt}
				builds[txID] = tb
				txOrder = append(txOrder, txID)
			}
			if fields[2] == "exon" {
				e := &gene.Exon{
					Start:    featStart,
					End:      featEnd,
					Strand:   strand,
					Phase:    gene.PhaseNone,
					EndPhase: gene.PhaseNone,
				}
				if name := attrs["evidence"]; name != "" {
					e.Evidence = append(e.Evidence, gene.Evidence{
						Name:      name,
						Start:     featStart,
						End:       featEnd,
						Strand:    strand,
						HitStrand: strand,
					})
				}
				tb.exons = append(tb.exons, e)
			} else {
				if tb.cdsStart == 0 || featStart < tb.cdsStart {
					tb.cdsStart = featStart
				}
				if featEnd > tb.cdsEnd {
					tb.cdsEnd = featEnd
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read GTF: %w", err)
	}

	geneByID := make(map[string]*gene.Gene)
	var genes []*gene.Gene
	for _, txID := range txOrder {
		tb := builds[txID]
		if len(tb.exons) == 0 {
			continue
		}
		if len(want) > 0 && !want[tb.biotype] {
			continue
		}
		t, err := tb.finish()
		if err != nil {
			return nil, err
		}
		g, ok := geneByID[tb.geneID]
		if !ok {
			g = &gene.Gene{ID: tb.geneID, Biotype: geneBiotypes[tb.geneID]}
			geneByID[tb.geneID] = g
			genes = append(genes, g)
		}
		g.AddTranscript(t)
	}

	gene.SortGenes(genes)
	return genes, nil
}

// finish orders the exons in transcription direction, derives the
// translation from the CDS span, and assigns exon phases.
func (tb *txBuild) finish() (*gene.Transcript, error) {
	forward := tb.exons[0].Strand == 1
	sort.Slice(tb.exons, func(i, j int) bool {
		if forward {
			return tb.exons[i].Start < tb.exons[j].Start
		}
		return tb.exons[i].Start > tb.exons[j].Start
	})

	t := &gene.Transcript{ID: tb.id, Biotype: tb.biotype, Exons: tb.exons}

	if tb.cdsStart > 0 {
		tr, err := translationFor(t, tb.cdsStart, tb.cdsEnd)
		if err != nil {
			return nil, fmt.Errorf("transcript %q: %w", tb.id, err)
		}
		t.Translation = tr
		assignPhases(t)
	}
	return t, nil
}

// translationFor locates the exons containing the CDS bounds and converts
// them to exon indices with in-exon offsets.
func translationFor(t *gene.Transcript, cdsStart, cdsEnd int64) (*gene.Translation, error) {
	forward := t.Strand() == 1
	tr := &gene.Translation{StartExon: -1, EndExon: -1}
	for i, e := range t.Exons {
		if forward {
			if cdsStart >= e.Start && cdsStart <= e.End {
				tr.StartExon = i
				tr.StartOffset = cdsStart - e.Start + 1
			}
			if cdsEnd >= e.Start && cdsEnd <= e.End {
				tr.EndExon = i
				tr.EndOffset = cdsEnd - e.Start + 1
			}
		} else {
			if cdsEnd >= e.Start && cdsEnd <= e.End {
				tr.StartExon = i
				tr.StartOffset = e.End - cdsEnd + 1
			}
			if cdsStart >= e.Start && cdsStart <= e.End {
				tr.EndExon = i
				tr.EndOffset = e.End - cdsStart + 1
			}
		}
	}
	if tr.StartExon < 0 || tr.EndExon < 0 {
		return nil, fmt.Errorf("CDS %d-%d falls outside exons", cdsStart, cdsEnd)
	}
	return tr, nil
}

// assignPhases walks the exons in transcription order and sets
// reading-frame phases. UTR-only exons keep PhaseNone, as do the boundaries
// where translation starts or ends mid-exon.
func assignPhases(t *gene.Transcript) {
	cs, ce := t.CodingSpan()
	tr := t.Translation
	phase := 0
	for i, e := range t.Exons {
		if e.End < cs || e.Start > ce {
			continue
		}
		codingLen := min(e.End, ce) - max(e.Start, cs) + 1
		if i == tr.StartExon && tr.StartOffset > 1 {
			e.Phase = gene.PhaseNone
		} else {
			e.Phase = phase
		}
		phase = int((int64(phase) + codingLen) % 3)
		if i == tr.EndExon && tr.EndOffset < e.Length() {
			e.EndPhase = gene.PhaseNone
		} else {
			e.EndPhase = phase
		}
	}
}

// parseAttributes parses the GTF attribute column:
// key1 "value1"; key2 "value2";
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, ' ')
		if idx < 0 {
			continue
		}
		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), `"`)
		attrs[key] = value
	}
	return attrs
}

// parseRegion parses "chrom" or "chrom:start-end" into a chromosome and a
// coordinate window.
func parseRegion(region string) (chrom string, start, end int64, err error) {
	chrom, span, found := strings.Cut(region, ":")
	if chrom == "" {
		return "", 0, 0, fmt.Errorf("empty region")
	}
	if !found {
		return chrom, 1, math.MaxInt64, nil
	}
	from, to, ok := strings.Cut(span, "-")
	if !ok {
		return "", 0, 0, fmt.Errorf("malformed region %q", region)
	}
	start, err = strconv.ParseInt(from, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed region %q: %w", region, err)
	}
	end, err = strconv.ParseInt(to, 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("malformed region %q: %w", region, err)
	}
	if start > end {
		return "", 0, 0, fmt.Errorf("malformed region %q: start after end", region)
	}
	return chrom, start, end, nil
}
