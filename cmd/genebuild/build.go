package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seqcurate/genebuild/internal/build"
	"github.com/seqcurate/genebuild/internal/classify"
	"github.com/seqcurate/genebuild/internal/source"
)

func newBuildCmd() *cobra.Command {
	var (
		primaryGTF   string
		secondaryGTF string
		outPath      string
		regions      []string
		workers      int
		dryRun       bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build merged genes for one or more regions",
		Example: `  genebuild build --primary auto.gtf --secondary curated.gtf \
      --region 12:25200000-25260000 --out genes.duckdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if primaryGTF == "" || secondaryGTF == "" {
				return fmt.Errorf("both --primary and --secondary GTF files are required")
			}
			if len(regions) == 0 {
				return fmt.Errorf("at least one --region is required")
			}
			if outPath == "" && !dryRun {
				return fmt.Errorf("--out is required unless --dry-run is set")
			}
			return runBuild(primaryGTF, secondaryGTF, outPath, regions, workers, dryRun, verbose)
		},
	}

	cmd.Flags().StringVar(&primaryGTF, "primary", "", "Primary-source annotation GTF (plain or gzipped)")
	cmd.Flags().StringVar(&secondaryGTF, "secondary", "", "Secondary-source annotation GTF")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output DuckDB database path")
	cmd.Flags().StringArrayVarP(&regions, "region", "r", nil, "Region to build (chrom or chrom:start-end); repeatable")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel region workers (0 = number of CPUs)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build without storing; report gene counts only")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func tagsFromConfig() classify.Tags {
	return classify.Tags{
		Coding:          viper.GetStringSlice("biotypes.coding"),
		Processed:       viper.GetStringSlice("biotypes.processed"),
		Pseudo:          viper.GetStringSlice("biotypes.pseudo"),
		SecondarySuffix: viper.GetString("biotypes.secondary_suffix"),
	}
}

func runBuild(primaryGTF, secondaryGTF, outPath string, regions []string, workers int, dryRun, verbose bool) error {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	builder := build.NewBuilder(
		source.NewGTFSource(primaryGTF),
		source.NewGTFSource(secondaryGTF),
		tagsFromConfig(),
	)
	builder.SetLogger(logger)

	var store build.GeneStore
	if dryRun {
		store = &source.MemoryStore{}
	} else {
		db, err := source.OpenStore(outPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
		builder.SetDiscarded(db)
	}

	items := make(chan build.WorkItem, len(regions))
	for i, region := range regions {
		items <- build.WorkItem{Seq: i, Region: region}
	}
	close(items)

	results := builder.BuildRegions(items, workers)

	failed := 0
	total := 0
	err = build.OrderedCollect(results, func(r build.WorkResult) error {
		if r.Err != nil {
			logger.Error("region failed", zap.String("region", r.Region), zap.Error(r.Err))
			failed++
			return nil
		}
		for _, g := range r.Genes {
			if err := store.Store(g); err != nil {
				return fmt.Errorf("store gene %s: %w", g.ID, err)
			}
		}
		total += len(r.Genes)
		fmt.Fprintf(os.Stderr, "%s: %d genes\n", r.Region, len(r.Genes))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Built %d genes across %d regions\n", total, len(regions))
	if failed > 0 {
		return fmt.Errorf("%d of %d regions failed", failed, len(regions))
	}
	return nil
}
