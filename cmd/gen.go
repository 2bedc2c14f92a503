package main

import (
	"github.com/spf13/cobra"

	"github.com/carveworks/fabline/internal/gen"
)

var (
	genDataDir string
	genJobs    int
	genSeed    uint64
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate synthetic source CSVs for the pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyDirOverrides(genDataDir, "")

		gcfg := cfg.Gen
		if genJobs > 0 {
			gcfg.Jobs = genJobs
		}
		if cmd.Flags().Changed("seed") {
			gcfg.Seed = genSeed
		}

		return gen.Generate(gcfg).WriteCSV(cfg.Data.Dir)
	},
}

func init() {
	genCmd.Flags().StringVar(&genDataDir, "data-dir", "", "directory to write the source CSV files")
	genCmd.Flags().IntVar(&genJobs, "jobs", 0, "number of jobs to generate (default from config)")
	genCmd.Flags().Uint64Var(&genSeed, "seed", 0, "random seed (default from config)")
	rootCmd.AddCommand(genCmd)
}
