// Package build wires the gene-merge pipeline: fetch, cluster, combine,
// reconcile, deduplicate, classify.
package build

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seqcurate/genebuild/internal/classify"
	"github.com/seqcurate/genebuild/internal/cluster"
	"github.com/seqcurate/genebuild/internal/gene"
	"github.com/seqcurate/genebuild/internal/reconcile"
)

// GeneSource fetches fully populated genes for a named region, restricted
// to the given transcript biotypes. An empty filter fetches everything.
type GeneSource interface {
	FetchGenesByType(region string, biotypes []string) ([]*gene.Gene, error)
}

// DiscardedSet answers whether a transcript has been rejected by an earlier
// pipeline stage, matched by exact exon coordinates.
type DiscardedSet interface {
	Contains(t *gene.Transcript) bool
}

// GeneStore persists final genes. Store is idempotent per gene identity.
type GeneStore interface {
	Store(g *gene.Gene) error
}

// Builder runs the merge pipeline for one region at a time. Each invocation
// works on its own object graph; callers wanting parallelism give every
// worker an independent region.
type Builder struct {
	primary   GeneSource
	secondary GeneSource
	discarded DiscardedSet
	tags      classify.Tags
	logger    *zap.Logger
}

// NewBuilder creates a builder over the two annotation sources.
func NewBuilder(primary, secondary GeneSource, tags classify.Tags) *Builder {
	return &Builder{
		primary:   primary,
		secondary: secondary,
		tags:      tags,
		logger:    zap.NewNop(),
	}
}

// SetDiscarded installs the discarded-transcript lookup.
func (b *Builder) SetDiscarded(d DiscardedSet) {
	b.discarded = d
}

// SetLogger sets the logger for warning and progress messages.
func (b *Builder) SetLogger(l *zap.Logger) {
	b.logger = l
}

// BuildGenes runs the full pipeline for one region and returns the final
// gene set. A partition-invariant violation or malformed input aborts the
// region; other regions are unaffected.
func (b *Builder) BuildGenes(region string) ([]*gene.Gene, error) {
	filter := b.tags.All()

	primGenes, err := b.primary.FetchGenesByType(region, filter)
	if err != nil {
		return nil, fmt.Errorf("region %s: fetch primary genes: %w", region, err)
	}
	secGenes, err := b.secondary.FetchGenesByType(region, filter)
	if err != nil {
		return nil, fmt.Errorf("region %s: fetch secondary genes: %w", region, err)
	}

	// Secondary transcripts carry their provenance in the biotype so the
	// reconciliation and classification stages can split the sources.
	for _, g := range secGenes {
		for _, t := range g.Transcripts {
			t.Biotype = b.tags.Secondary(t.Biotype)
		}
	}

	var coding, rest []*gene.Transcript
	kept, skipped := 0, 0
	for _, g := range append(primGenes, secGenes...) {
		for _, t := range g.Transcripts {
			if b.discarded != nil && b.discarded.Contains(t) {
				skipped++
				continue
			}
			kept++
			if t.IsCoding() {
				coding = append(coding, t)
			} else {
				rest = append(rest, t)
			}
		}
	}
	b.logger.Debug("fetched transcripts",
		zap.String("region", region),
		zap.Int("kept", kept),
		zap.Int("discarded", skipped))

	codingClusters, err := cluster.ClusterCoding(coding)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	pseudoClusters, err := cluster.ClusterNonCoding(rest)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}

	genes := cluster.Combine(
		cluster.GenesFromClusters(codingClusters),
		cluster.GenesFromClusters(pseudoClusters),
	)

	isSecondary := func(t *gene.Transcript) bool { return b.tags.IsSecondary(t.Biotype) }
	for _, g := range genes {
		if err := reconcile.ReconcileGene(g, isSecondary); err != nil {
			return nil, fmt.Errorf("region %s: %w", region, err)
		}
		gene.PruneExons(g)
	}

	for i, g := range genes {
		if g.ID == "" {
			g.ID = fmt.Sprintf("%s.g%d", region, i+1)
		}
		if err := classify.Resolve(g, b.tags); err != nil {
			var uc *classify.UnclassifiableError
			if !errors.As(err, &uc) {
				return nil, fmt.Errorf("region %s: %w", region, err)
			}
			b.logger.Warn("unclassifiable gene kept with existing biotype",
				zap.String("region", region),
				zap.String("gene", uc.GeneID),
				zap.Strings("biotypes", uc.Biotypes))
		}
	}

	gene.SortGenes(genes)
	b.logger.Info("built genes",
		zap.String("region", region),
		zap.Int("genes", len(genes)))
	return genes, nil
}

// Run builds every region and stores the results. A failing region is
// logged and skipped; the remaining regions still run. All failures are
// combined into the returned error.
func (b *Builder) Run(regions []string, store GeneStore) error {
	var errs error
	for _, region := range regions {
		genes, err := b.BuildGenes(region)
		if err != nil {
			b.logger.Error("region failed", zap.String("region", region), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		for _, g := range genes {
			if err := store.Store(g); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("region %s: store gene %s: %w", region, g.ID, err))
				break
			}
		}
	}
	return errs
}
