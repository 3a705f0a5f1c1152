package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/plecscore/internal/chem"
	"github.com/sawpanic/plecscore/internal/scoring"
)

func runPredict(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no ligand files given")
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	artifact, _ := cmd.Flags().GetString("artifact")
	receptorPath, _ := cmd.Flags().GetString("receptor")
	pdbbindVersion, _ := cmd.Flags().GetInt("pdbbind-version")

	sf, err := scoring.Load(context.Background(), artifact, settings.HomeDir,
		scorerConfig(cmd, settings.Workers()), pdbbindVersion)
	if err != nil {
		return err
	}

	var receptor *chem.Molecule
	if receptorPath != "" {
		if receptor, err = chem.ParsePDBFile(receptorPath); err != nil {
			return err
		}
	}

	for _, ligandPath := range args {
		ligand, err := chem.ParseMOL2File(ligandPath)
		if err != nil {
			return err
		}
		score, err := sf.Predict(ligand, receptor)
		if err != nil {
			return fmt.Errorf("%s: %w", ligandPath, err)
		}
		fmt.Printf("%s\t%.4f\n", ligandPath, score)
	}
	return nil
}
