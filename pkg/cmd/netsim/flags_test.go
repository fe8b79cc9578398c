package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

func TestBindServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().String("addr", ":8080", "")
	cmd.Flags().Int("max-jobs", 4, "")

	cfg := pipeline.NewConfig()
	cfg.Set("server.max_jobs", 8)

	if err := cmd.Flags().Set("addr", ":9090"); err != nil {
		t.Fatal(err)
	}
	if err := bindServeFlags(cmd, cfg); err != nil {
		t.Fatalf("bindServeFlags failed: %v", err)
	}
	if got := cfg.ServerAddress(); got != ":9090" {
		t.Errorf("address = %q, want :9090", got)
	}
	// unchanged flags leave configured values alone
	if got := cfg.MaxJobs(); got != 8 {
		t.Errorf("max jobs = %d, want 8", got)
	}
}

func TestBindAnalyzeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "analyze"}
	cmd.Flags().Float64("threshold", 0.0, "")

	cfg := pipeline.NewConfig()
	if err := cmd.Flags().Set("threshold", "0.25"); err != nil {
		t.Fatal(err)
	}
	if err := bindAnalyzeFlags(cmd, cfg); err != nil {
		t.Fatalf("bindAnalyzeFlags failed: %v", err)
	}
	if got := cfg.GraphThreshold(); got != 0.25 {
		t.Errorf("threshold = %v, want 0.25", got)
	}
}
