package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/plecscore/internal/scoring"
)

func runExport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	pdbbindVersion, _ := cmd.Flags().GetInt("pdbbind-version")

	sf, err := scoring.New(scorerConfig(cmd, settings.Workers()))
	if err != nil {
		return err
	}

	path, err := sf.ExportParams(context.Background(), settings.HomeDir, pdbbindVersion)
	if err != nil {
		return err
	}
	log.Info().Str("score", sf.ScoreTitle()).Str("params", path).Msg("parameter document written")
	return nil
}
