package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/plecscore/internal/scoring"
)

func runTrain(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	pdbbindVersion, _ := cmd.Flags().GetInt("pdbbind-version")
	ignoreJSON, _ := cmd.Flags().GetBool("ignore-json")

	sf, err := scoring.New(scorerConfig(cmd, settings.Workers()))
	if err != nil {
		return err
	}

	path, err := sf.Train(context.Background(), settings.HomeDir, out, pdbbindVersion, ignoreJSON)
	if err != nil {
		return err
	}
	log.Info().Str("score", sf.ScoreTitle()).Str("artifact", path).Msg("training complete")
	return nil
}
