// Package scoring wires the PLEC feature extractor and a regressor into
// one scoring function with a uniform train / persist / load lifecycle.
package scoring

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/plecscore/internal/chem"
	"github.com/sawpanic/plecscore/internal/descriptor"
	"github.com/sawpanic/plecscore/internal/fingerprint"
	"github.com/sawpanic/plecscore/internal/model"
	"github.com/sawpanic/plecscore/internal/pdbbind"
	"github.com/sawpanic/plecscore/internal/stats"
)

func init() {
	gob.Register(&model.SGDRegressor{})
	gob.Register(&model.MLPRegressor{})
	gob.Register(&model.ForestRegressor{})
}

// Config is the immutable construction record of a PLEC scoring function.
// It is set once and never mutated; everything else (filenames, titles,
// fingerprint parameters) derives from it.
type Config struct {
	// ProteinPath optionally binds a default receptor, parsed at
	// construction and re-parsed when an artifact is loaded.
	ProteinPath string
	// NJobs caps worker parallelism; <=0 means all available cores.
	NJobs int
	// Version selects the regressor variant.
	Version model.Variant
	// DepthProtein and DepthLigand are the fingerprint environment depths.
	DepthProtein int
	DepthLigand  int
	// Size is the folded fingerprint length.
	Size int
}

// DefaultConfig mirrors the published defaults: the linear variant at
// protein depth 5, ligand depth 1, 65536 bits.
func DefaultConfig() Config {
	return Config{
		NJobs:        -1,
		Version:      model.VariantLinear,
		DepthProtein: 5,
		DepthLigand:  1,
		Size:         65536,
	}
}

// PLECScore pairs a bound feature extractor with one regressor variant.
type PLECScore struct {
	cfg       Config
	title     string
	desc      *descriptor.Generator
	mdl       model.Regressor
	runID     string
	createdAt time.Time
}

// New validates the configuration and builds an untrained scoring
// function. The variant tag is checked against the closed enumeration;
// each variant carries its fixed hyperparameters and exposes no further
// tuning surface.
func New(cfg Config) (*PLECScore, error) {
	variant, err := model.ParseVariant(string(cfg.Version))
	if err != nil {
		return nil, err
	}

	fpCfg := fingerprint.Config{
		DepthLigand:  cfg.DepthLigand,
		DepthProtein: cfg.DepthProtein,
		Size:         cfg.Size,
		CountBits:    true,
		Sparse:       true,
		IgnoreHOH:    true,
	}
	if err := fpCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var protein *chem.Molecule
	if cfg.ProteinPath != "" {
		if protein, err = chem.ParsePDBFile(cfg.ProteinPath); err != nil {
			return nil, fmt.Errorf("invalid configuration: receptor: %w", err)
		}
	}
	desc, err := descriptor.New(fpCfg, protein)
	if err != nil {
		return nil, err
	}

	var mdl model.Regressor
	switch variant {
	case model.VariantLinear:
		mdl = model.NewSGDRegressor(model.DefaultSGDConfig())
	case model.VariantNeuralNet:
		mdl = model.NewMLPRegressor(model.DefaultMLPConfig())
	case model.VariantRandomForest:
		fc := model.DefaultForestConfig()
		fc.NJobs = cfg.NJobs
		mdl = model.NewForestRegressor(fc)
	}

	return &PLECScore{
		cfg:       cfg,
		title:     fmt.Sprintf("PLEC%s_p%d_l%d", variant, cfg.DepthProtein, cfg.DepthLigand),
		desc:      desc,
		mdl:       mdl,
		runID:     uuid.NewString(),
		createdAt: time.Now(),
	}, nil
}

// ScoreTitle returns the human-readable title encoding variant and depths.
func (p *PLECScore) ScoreTitle() string { return p.title }

// Config returns the construction record.
func (p *PLECScore) Config() Config { return p.cfg }

// Model exposes the underlying regressor, mainly for tests and export.
func (p *PLECScore) Model() model.Regressor { return p.mdl }

// IsFit reports whether the underlying model can predict.
func (p *PLECScore) IsFit() bool { return p.mdl.IsFit() }

// DescFilename is the deterministic descriptor CSV name for a
// configuration.
func DescFilename(cfg Config) string {
	return fmt.Sprintf("plecscore_descs_p%d_l%d_s%d.csv", cfg.DepthProtein, cfg.DepthLigand, cfg.Size)
}

// JSONFilename is the deterministic parameter document name for a
// configuration and benchmark release.
func JSONFilename(cfg Config, pdbbindVersion int) string {
	return fmt.Sprintf("plecscore_%s_p%d_l%d_s%d_pdbbind%d.json",
		cfg.Version, cfg.DepthProtein, cfg.DepthLigand, cfg.Size, pdbbindVersion)
}

// ArtifactFilename is the deterministic model artifact name for a
// configuration and benchmark release.
func ArtifactFilename(cfg Config, pdbbindVersion int) string {
	return fmt.Sprintf("PLEC%s_p%d_l%d_pdbbind%d_s%d.gob",
		cfg.Version, cfg.DepthProtein, cfg.DepthLigand, pdbbindVersion, cfg.Size)
}

// GenTrainingData computes descriptors for every entry of the named
// benchmark releases and writes the descriptor CSV under homeDir.
func (p *PLECScore) GenTrainingData(ctx context.Context, pdbbindDir string, versions []int, homeDir string) error {
	src, err := pdbbind.Load(pdbbindDir, versions)
	if err != nil {
		return err
	}
	jobs := p.cfg.NJobs
	if jobs <= 0 {
		jobs = availableJobs()
	}
	outPath := filepath.Join(homeDir, DescFilename(p.cfg))
	log.Info().
		Str("score", p.title).
		Int("entries", len(src.Entries)).
		Str("out", outPath).
		Msg("generating training descriptors")
	return GenPDBBindDesc(ctx, src, p.desc, outPath, jobs)
}

// Train fits the scoring function and persists it, returning the artifact
// path.
//
// Fast path: a linear variant with a matching parameter document under
// homeDir restores the published coefficients directly, skipping the
// dataset entirely, unless ignoreJSON forces a retrain. Slow path: the
// descriptor CSV written by GenTrainingData is split by benchmark
// partition, the model is fit (tree ensembles on a densified copy) and
// the three diagnostic metrics are reported per evaluation set.
func (p *PLECScore) Train(ctx context.Context, homeDir, artifactPath string, pdbbindVersion int, ignoreJSON bool) (string, error) {
	jsonPath := filepath.Join(homeDir, JSONFilename(p.cfg, pdbbindVersion))

	if p.cfg.Version == model.VariantLinear && !ignoreJSON && fileExists(jsonPath) {
		log.Info().
			Str("score", p.title).
			Int("pdbbind", pdbbindVersion).
			Str("params", jsonPath).
			Msg("loading pretrained coefficients")
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return "", fmt.Errorf("scoring: failed to read parameter document: %w", err)
		}
		if err := unmarshalParams(p.cfg.Version, p.mdl, data); err != nil {
			return "", err
		}
	} else {
		if err := p.trainFromDescs(ctx, homeDir, pdbbindVersion); err != nil {
			return "", err
		}
	}

	if artifactPath == "" {
		artifactPath = filepath.Join(homeDir, ArtifactFilename(p.cfg, pdbbindVersion))
	}
	if err := p.Save(artifactPath); err != nil {
		return "", err
	}
	return artifactPath, nil
}

func (p *PLECScore) trainFromDescs(ctx context.Context, homeDir string, pdbbindVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	descPath := filepath.Join(homeDir, DescFilename(p.cfg))
	split, err := LoadPDBBindDesc(descPath, pdbbindVersion, p.cfg.Size)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	log.Info().
		Str("score", p.title).
		Int("pdbbind", pdbbindVersion).
		Int("train", len(split.TrainY)).
		Int("test", len(split.TestY)).
		Msg("training")

	// Tree ensembles cannot consume the CSR matrix; densify once, for
	// both fitting and prediction.
	var trainX, testX mat.Matrix = split.TrainX, nil
	if split.TestX != nil {
		testX = split.TestX
	}
	forest, isForest := p.mdl.(*model.ForestRegressor)
	if isForest {
		trainX = mat.DenseCopyOf(split.TrainX)
		if split.TestX != nil {
			testX = mat.DenseCopyOf(split.TestX)
		}
	}

	if err := p.mdl.Fit(trainX, split.TrainY); err != nil {
		return err
	}
	// A cancellation that lands mid-fit surfaces here, before the metric
	// passes re-walk the whole training set.
	if err := ctx.Err(); err != nil {
		return err
	}

	if testX != nil {
		pred, err := p.mdl.Predict(testX)
		if err != nil {
			return err
		}
		reportMetrics("Test", split.TestY, pred)
	}
	trainPred, err := p.mdl.Predict(trainX)
	if err != nil {
		return err
	}
	reportMetrics("Train", split.TrainY, trainPred)
	if isForest && forest.OOBPrediction != nil {
		reportMetrics("OOB", split.TrainY, forest.OOBPrediction)
	}
	return nil
}

// reportMetrics emits the diagnostic triple for one evaluation set. The
// report is log output only, not part of any return contract.
func reportMetrics(set string, observed, predicted []float64) {
	rep, err := stats.Evaluate(observed, predicted)
	if err != nil {
		log.Warn().Str("set", set).Err(err).Msg("skipping metrics")
		return
	}
	log.Info().
		Str("set", set).
		Float64("r2", rep.R2).
		Float64("rp", rep.Rp).
		Float64("rmse", rep.RMSE).
		Msg("evaluation")
}

// ExportParams trains the model if needed, then writes the
// variant-appropriate parameter document under homeDir and returns its
// path. The tree-ensemble variant has no document and fails with
// ErrUnsupportedExport.
func (p *PLECScore) ExportParams(ctx context.Context, homeDir string, pdbbindVersion int) (string, error) {
	if !p.mdl.IsFit() {
		if _, err := p.Train(ctx, homeDir, "", pdbbindVersion, false); err != nil {
			return "", err
		}
	}

	data, err := marshalParams(p.cfg.Version, p.mdl)
	if err != nil {
		return "", err
	}

	jsonPath := filepath.Join(homeDir, JSONFilename(p.cfg, pdbbindVersion))
	if err := os.MkdirAll(filepath.Dir(jsonPath), 0755); err != nil {
		return "", fmt.Errorf("scoring: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return "", fmt.Errorf("scoring: failed to write parameter document: %w", err)
	}
	return jsonPath, nil
}

// Predict scores one ligand. The receptor argument may be nil when the
// configuration bound one at construction.
func (p *PLECScore) Predict(ligand, protein *chem.Molecule) (float64, error) {
	if !p.mdl.IsFit() {
		return 0, model.ErrNotFit
	}

	var fp *fingerprint.Fingerprint
	var err error
	if protein != nil {
		fp, err = p.desc.BuildPair(ligand, protein)
	} else {
		fp, err = p.desc.Build(ligand)
	}
	if err != nil {
		return 0, err
	}

	var X mat.Matrix = descriptor.Row(fp)
	if _, ok := p.mdl.(*model.ForestRegressor); ok {
		X = mat.DenseCopyOf(X)
	}
	pred, err := p.mdl.Predict(X)
	if err != nil {
		return 0, err
	}
	return pred[0], nil
}

// Score evaluates a batch of ligands against one receptor, returning one
// predicted affinity per ligand in input order.
func (p *PLECScore) Score(ligands []*chem.Molecule, protein *chem.Molecule) ([]float64, error) {
	out := make([]float64, len(ligands))
	for i, ligand := range ligands {
		s, err := p.Predict(ligand, protein)
		if err != nil {
			return nil, fmt.Errorf("scoring: ligand %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// snapshot is the gob wire form of a scoring function. The descriptor
// generator is not stored; it is a pure function of the configuration and
// is rebuilt on load.
type snapshot struct {
	Config    Config
	Title     string
	RunID     string
	CreatedAt time.Time
	Model     model.Regressor
}

// Save writes the whole scoring function, fit or not, as a gob artifact.
func (p *PLECScore) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.gob")
	if err != nil {
		return fmt.Errorf("scoring: failed to create temp artifact: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	enc := gob.NewEncoder(tmp)
	if err := enc.Encode(snapshot{
		Config:    p.cfg,
		Title:     p.title,
		RunID:     p.runID,
		CreatedAt: p.createdAt,
		Model:     p.mdl,
	}); err != nil {
		return fmt.Errorf("scoring: failed to encode artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("scoring: failed to move artifact into place: %w", err)
	}
	log.Info().Str("score", p.title).Str("artifact", path).Msg("saved model artifact")
	return nil
}

// LoadArtifact restores a scoring function from a gob artifact. The
// receptor named by the stored configuration is re-parsed when still
// present; otherwise predictions need an explicit receptor.
func LoadArtifact(path string) (*PLECScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("scoring: failed to decode artifact %s: %w", path, err)
	}

	fpCfg := fingerprint.Config{
		DepthLigand:  snap.Config.DepthLigand,
		DepthProtein: snap.Config.DepthProtein,
		Size:         snap.Config.Size,
		CountBits:    true,
		Sparse:       true,
		IgnoreHOH:    true,
	}
	var protein *chem.Molecule
	if snap.Config.ProteinPath != "" {
		protein, err = chem.ParsePDBFile(snap.Config.ProteinPath)
		if err != nil {
			log.Warn().Str("receptor", snap.Config.ProteinPath).Err(err).
				Msg("stored receptor unavailable, predictions need an explicit receptor")
			protein = nil
		}
	}
	desc, err := descriptor.New(fpCfg, protein)
	if err != nil {
		return nil, err
	}

	return &PLECScore{
		cfg:       snap.Config,
		title:     snap.Title,
		desc:      desc,
		mdl:       snap.Model,
		runID:     snap.RunID,
		createdAt: snap.CreatedAt,
	}, nil
}

// Load resolves a usable scoring function. With an explicit path it simply
// restores the artifact. Otherwise it probes the deterministic artifact
// name under homeDir and the current directory and, failing both, builds a
// fresh scoring function from cfg and runs the full training cycle. All
// identifying values come from the explicit configuration; nothing is read
// from ambient state.
func Load(ctx context.Context, path, homeDir string, cfg Config, pdbbindVersion int) (*PLECScore, error) {
	if path != "" {
		return LoadArtifact(path)
	}

	name := ArtifactFilename(cfg, pdbbindVersion)
	for _, candidate := range []string{filepath.Join(homeDir, name), name} {
		if fileExists(candidate) {
			return LoadArtifact(candidate)
		}
	}

	log.Info().Str("artifact", name).Msg("no artifact found, training new scoring function")
	sf, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := sf.Train(ctx, homeDir, "", pdbbindVersion, false); err != nil {
		return nil, err
	}
	return sf, nil
}

// availableJobs resolves the <=0 parallelism hint.
func availableJobs() int {
	return runtime.NumCPU()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
