package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sawpanic/plecscore/internal/config"
)

const (
	appName = "plecscore"
	version = "v1.0.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "PLEC protein-ligand binding affinity scoring",
		Version: version,
		Long: `plecscore trains and applies PLEC fingerprint scoring functions
for protein-ligand binding affinity, benchmarked against PDBBind.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to plecscore.yaml (optional)")
	rootCmd.PersistentFlags().String("home", "", "Directory holding descriptors, parameter documents and artifacts")
	rootCmd.PersistentFlags().String("variant", "linear", "Model variant (linear|nn|rf)")
	rootCmd.PersistentFlags().Int("depth-protein", 5, "Protein environment depth")
	rootCmd.PersistentFlags().Int("depth-ligand", 1, "Ligand environment depth")
	rootCmd.PersistentFlags().Int("size", 65536, "Fingerprint bit length")
	rootCmd.PersistentFlags().Int("n-jobs", -1, "Worker parallelism, <=0 uses all cores")

	genCmd := &cobra.Command{
		Use:   "gen-data",
		Short: "Generate training descriptors from a PDBBind mirror",
		Long:  "Computes the PLEC descriptor of every benchmark complex and writes the descriptor CSV",
		RunE:  runGenData,
	}
	genCmd.Flags().String("pdbbind", "", "Root directory of the PDBBind mirror")
	genCmd.Flags().IntSlice("pdbbind-versions", []int{2016}, "Benchmark releases to include")

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train a scoring function and persist the artifact",
		Long:  "Fits the selected variant on the generated descriptors, or restores published linear coefficients when available",
		RunE:  runTrain,
	}
	trainCmd.Flags().String("out", "", "Explicit artifact path (default: deterministic name under home)")
	trainCmd.Flags().Int("pdbbind-version", 2016, "Benchmark release used for the train/test split")
	trainCmd.Flags().Bool("ignore-json", false, "Skip the pretrained parameter document and retrain")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export model parameters as a JSON document",
		Long:  "Writes the variant-appropriate parameter document, training first if needed",
		RunE:  runExport,
	}
	exportCmd.Flags().Int("pdbbind-version", 2016, "Benchmark release tag for the document name")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Score ligands against a receptor",
		Long:  "Loads a trained artifact and prints the predicted binding affinity per ligand",
		RunE:  runPredict,
	}
	predictCmd.Flags().String("artifact", "", "Explicit artifact path (default: probe deterministic name)")
	predictCmd.Flags().String("receptor", "", "Receptor PDB file")
	predictCmd.Flags().Int("pdbbind-version", 2016, "Benchmark release tag for artifact probing")

	rootCmd.AddCommand(genCmd, trainCmd, exportCmd, predictCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// loadSettings merges the optional YAML file with command-line flags.
// Flags win where both are set.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if home, _ := cmd.Flags().GetString("home"); home != "" {
		cfg.HomeDir = home
	}
	if cmd.Flags().Changed("n-jobs") {
		cfg.NJobs, _ = cmd.Flags().GetInt("n-jobs")
	}
	return cfg, nil
}
