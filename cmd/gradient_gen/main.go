package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"microbiogeo/adapters/qiime"
	"microbiogeo/adapters/rng"
	"microbiogeo/domain/distmat"
	"microbiogeo/internal/testkit"
)

func main() {
	out := flag.String("out", "gradient_study", "output directory")
	samples := flag.Int("samples", 12, "number of samples along the gradient")
	noise := flag.Float64("noise", 0.05, "community noise amplitude")
	seed := flag.Int64("seed", 42, "RNG seed (deterministic)")
	flag.Parse()

	if *samples < 2 {
		fmt.Fprintln(os.Stderr, "samples must be >= 2")
		os.Exit(2)
	}
	if *noise < 0 {
		fmt.Fprintln(os.Stderr, "noise must be >= 0")
		os.Exit(2)
	}

	cfg := testkit.DefaultGradientConfig()
	cfg.Samples = *samples
	cfg.Noise = *noise
	cfg.Seed = *seed

	gen, err := testkit.NewGradientStudyGenerator(context.Background(), rng.NewStreamAdapter(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error creating generator:", err)
		os.Exit(1)
	}
	study, err := gen.Generate()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error generating study:", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "error creating output directory:", err)
		os.Exit(1)
	}
	if err := writeMatrix(filepath.Join(*out, "community_dm.txt"), study.Community); err != nil {
		fmt.Fprintln(os.Stderr, "error writing community matrix:", err)
		os.Exit(1)
	}
	if err := writeMatrix(filepath.Join(*out, "geographic_dm.txt"), study.Geographic); err != nil {
		fmt.Fprintln(os.Stderr, "error writing geographic matrix:", err)
		os.Exit(1)
	}
	if err := writeMapping(filepath.Join(*out, "mapping.txt"), study.Metadata); err != nil {
		fmt.Fprintln(os.Stderr, "error writing mapping file:", err)
		os.Exit(1)
	}

	fmt.Printf("Gradient study written to %s\n", *out)
	fmt.Printf("Samples: %d | Categories: %v\n", study.Community.Size(), study.Metadata.Categories())
}

func writeMatrix(path string, dm *distmat.DistanceMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := qiime.FormatDistanceMatrix(f, dm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMapping(path string, md *distmat.MetadataMap) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := qiime.FormatMetadataMap(f, md); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
