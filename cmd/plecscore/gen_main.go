package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/plecscore/internal/model"
	"github.com/sawpanic/plecscore/internal/scoring"
)

// scorerConfig assembles the scoring configuration shared by every
// subcommand from persistent flags.
func scorerConfig(cmd *cobra.Command, nJobs int) scoring.Config {
	variant, _ := cmd.Flags().GetString("variant")
	depthProtein, _ := cmd.Flags().GetInt("depth-protein")
	depthLigand, _ := cmd.Flags().GetInt("depth-ligand")
	size, _ := cmd.Flags().GetInt("size")
	return scoring.Config{
		NJobs:        nJobs,
		Version:      model.Variant(variant),
		DepthProtein: depthProtein,
		DepthLigand:  depthLigand,
		Size:         size,
	}
}

func runGenData(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	pdbbindDir, _ := cmd.Flags().GetString("pdbbind")
	if pdbbindDir == "" {
		pdbbindDir = settings.PDBBindDir
	}
	if pdbbindDir == "" {
		return fmt.Errorf("no PDBBind directory given (--pdbbind or pdbbind_dir in config)")
	}
	versions, _ := cmd.Flags().GetIntSlice("pdbbind-versions")
	if !cmd.Flags().Changed("pdbbind-versions") && len(settings.PDBBindVersions) > 0 {
		versions = settings.PDBBindVersions
	}

	sf, err := scoring.New(scorerConfig(cmd, settings.Workers()))
	if err != nil {
		return err
	}
	return sf.GenTrainingData(context.Background(), pdbbindDir, versions, settings.HomeDir)
}
