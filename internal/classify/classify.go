// Package classify resolves final gene biotypes after clustering and
// reconciliation.
package classify

import (
	"fmt"
	"strings"

	"github.com/seqcurate/genebuild/internal/gene"
	"github.com/seqcurate/genebuild/internal/reconcile"
)

// Base biotypes assigned to resolved genes, in priority order.
const (
	BiotypeCoding    = "protein_coding"
	BiotypeProcessed = "processed_transcript"
	BiotypePseudo    = "pseudogene"
)

// MergedSuffix marks a gene whose transcripts were merged from both sources.
const MergedSuffix = "_merged"

// Tags enumerates the known transcript biotypes per functional class for
// the primary source. Secondary-source transcripts carry the same base
// biotypes with SecondarySuffix appended. Lookup is by exact match.
type Tags struct {
	Coding          []string
	Processed       []string
	Pseudo          []string
	SecondarySuffix string
}

// DefaultTags returns the standard biotype sets.
func DefaultTags() Tags {
	return Tags{
		Coding:    []string{"protein_coding"},
		Processed: []string{"processed_transcript"},
		Pseudo:    []string{"pseudogene", "processed_pseudogene", "unprocessed_pseudogene"},
		SecondarySuffix: "_curated",
	}
}

// All returns every known base biotype.
func (tg Tags) All() []string {
	out := make([]string, 0, len(tg.Coding)+len(tg.Processed)+len(tg.Pseudo))
	out = append(out, tg.Coding...)
	out = append(out, tg.Processed...)
	out = append(out, tg.Pseudo...)
	return out
}

// IsSecondary reports whether a transcript biotype carries the
// secondary-source provenance suffix.
func (tg Tags) IsSecondary(biotype string) bool {
	return tg.SecondarySuffix != "" && strings.HasSuffix(biotype, tg.SecondarySuffix)
}

// Secondary returns the secondary-source form of a base biotype.
func (tg Tags) Secondary(biotype string) string {
	if tg.IsSecondary(biotype) {
		return biotype
	}
	return biotype + tg.SecondarySuffix
}

const (
	classNone = iota
	classPseudo
	classProcessed
	classCoding
)

// class returns the functional class of a transcript biotype and whether it
// came from the secondary source. ok is false for an unknown biotype.
func (tg Tags) class(biotype string) (class int, secondary bool, ok bool) {
	base := biotype
	if tg.IsSecondary(biotype) {
		base = strings.TrimSuffix(biotype, tg.SecondarySuffix)
		secondary = true
	}
	switch {
	case contains(tg.Coding, base):
		return classCoding, secondary, true
	case contains(tg.Processed, base):
		return classProcessed, secondary, true
	case contains(tg.Pseudo, base):
		return classPseudo, secondary, true
	}
	return classNone, secondary, false
}

func contains(set []string, s string) bool {
	for _, have := range set {
		if have == s {
			return true
		}
	}
	return false
}

// UnclassifiableError reports a gene whose transcript biotypes fit none of
// the known tag sets. The gene keeps its previous biotype; callers decide
// whether to warn and continue.
type UnclassifiableError struct {
	GeneID   string
	Biotypes []string
}

func (e *UnclassifiableError) Error() string {
	return fmt.Sprintf("gene %q: unclassifiable biotype combination %v", e.GeneID, e.Biotypes)
}

// Resolve assigns the gene one of nine biotypes: the highest-priority
// functional class among its transcripts (coding > processed > pseudogene)
// combined with provenance (primary-only, secondary-only, or merged from
// both sources). A merged cross-reference on any transcript also marks the
// gene as merged.
func Resolve(g *gene.Gene, tg Tags) error {
	top := classNone
	hasPrimary, hasSecondary, merged := false, false, false
	var unknown []string

	for _, t := range g.Transcripts {
		c, secondary, ok := tg.class(t.Biotype)
		if !ok {
			unknown = append(unknown, t.Biotype)
			continue
		}
		if c > top {
			top = c
		}
		if secondary {
			hasSecondary = true
		} else {
			hasPrimary = true
		}
		if t.HasAttribute(reconcile.AttrMergedFrom) {
			merged = true
		}
	}

	if top == classNone {
		return &UnclassifiableError{GeneID: g.ID, Biotypes: unknown}
	}

	base := BiotypePseudo
	switch top {
	case classCoding:
		base = BiotypeCoding
	case classProcessed:
		base = BiotypeProcessed
	}

	switch {
	case merged || (hasPrimary && hasSecondary):
		g.Biotype = base + MergedSuffix
	case hasSecondary:
		g.Biotype = base + tg.SecondarySuffix
	default:
		g.Biotype = base
	}
	return nil
}
