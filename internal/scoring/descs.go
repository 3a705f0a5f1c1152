package scoring

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/james-bowman/sparse"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/plecscore/internal/chem"
	"github.com/sawpanic/plecscore/internal/descriptor"
	"github.com/sawpanic/plecscore/internal/fingerprint"
	plog "github.com/sawpanic/plecscore/internal/log"
	"github.com/sawpanic/plecscore/internal/pdbbind"
)

// descRow is one line of the descriptor CSV: the benchmark metadata, the
// measured affinity and the sparse fingerprint.
type descRow struct {
	entry pdbbind.Entry
	fp    *fingerprint.Fingerprint
}

// GenPDBBindDesc computes the descriptor of every benchmark entry and
// writes the CSV at outPath. Entries are processed by a bounded worker
// pool; rows keep the benchmark's deterministic order regardless of
// scheduling. Entries whose structure files are missing or unreadable are
// logged and skipped rather than failing the whole multi-hour run.
func GenPDBBindDesc(ctx context.Context, src *pdbbind.Source, gen *descriptor.Generator, outPath string, jobs int) error {
	if jobs <= 0 {
		jobs = 1
	}

	rows := make([]*descRow, len(src.Entries))
	progress := plog.NewProgressIndicator("gen-descriptors", len(src.Entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, entry := range src.Entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fp, err := buildEntryDesc(src, gen, entry)
			if err != nil {
				log.Warn().Str("pdbid", entry.PDBID).Err(err).Msg("skipping benchmark entry")
				progress.Fail()
				return nil
			}
			rows[i] = &descRow{entry: entry, fp: fp}
			progress.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	progress.Done()

	kept := rows[:0]
	for _, r := range rows {
		if r != nil {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("scoring: no benchmark entry produced a descriptor")
	}
	return writeDescCSV(outPath, kept)
}

func buildEntryDesc(src *pdbbind.Source, gen *descriptor.Generator, entry pdbbind.Entry) (*fingerprint.Fingerprint, error) {
	proteinPath, err := src.ProteinPath(entry)
	if err != nil {
		return nil, err
	}
	ligandPath, err := src.LigandPath(entry)
	if err != nil {
		return nil, err
	}
	protein, err := chem.ParsePDBFile(proteinPath)
	if err != nil {
		return nil, err
	}
	ligand, err := chem.ParseMOL2File(ligandPath)
	if err != nil {
		return nil, err
	}
	return gen.BuildPair(ligand, protein)
}

// writeDescCSV writes rows atomically: temp file in the target directory,
// then rename.
func writeDescCSV(path string, rows []*descRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create descriptor directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".descs-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp descriptor file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"pdbid", "version", "set", "act", "desc"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.entry.PDBID,
			strconv.Itoa(r.entry.Version),
			r.entry.Set,
			strconv.FormatFloat(r.entry.Activity, 'g', -1, 64),
			encodeSparse(r.fp),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write descriptor CSV: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move descriptor CSV into place: %w", err)
	}
	return nil
}

// encodeSparse renders a fingerprint as space-separated index:count pairs.
func encodeSparse(fp *fingerprint.Fingerprint) string {
	var sb strings.Builder
	if fp.Dense != nil {
		first := true
		for j, v := range fp.Dense {
			if v == 0 {
				continue
			}
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			fmt.Fprintf(&sb, "%d:%s", j, strconv.FormatFloat(v, 'g', -1, 64))
		}
		return sb.String()
	}
	for k, j := range fp.Indices {
		if k > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d:%s", j, strconv.FormatFloat(fp.Counts[k], 'g', -1, 64))
	}
	return sb.String()
}

func decodeSparse(s string, shape int) (*fingerprint.Fingerprint, error) {
	fp := &fingerprint.Fingerprint{Size: shape}
	if s == "" {
		return fp, nil
	}
	for _, pair := range strings.Fields(s) {
		idx := strings.IndexByte(pair, ':')
		if idx < 0 {
			return nil, fmt.Errorf("bad sparse pair %q", pair)
		}
		j, err := strconv.Atoi(pair[:idx])
		if err != nil {
			return nil, fmt.Errorf("bad sparse index %q: %w", pair[:idx], err)
		}
		v, err := strconv.ParseFloat(pair[idx+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("bad sparse value %q: %w", pair[idx+1:], err)
		}
		if j < 0 || j >= shape {
			return nil, fmt.Errorf("sparse index %d out of range [0,%d)", j, shape)
		}
		fp.Indices = append(fp.Indices, j)
		fp.Counts = append(fp.Counts, v)
	}
	return fp, nil
}

// TrainTestSplit is the partitioned view of a descriptor CSV: general and
// refined rows form the training set, core rows the held-out test set.
type TrainTestSplit struct {
	TrainX *sparse.CSR
	TrainY []float64
	TestX  *sparse.CSR
	TestY  []float64
}

// LoadPDBBindDesc reads a descriptor CSV back and splits it by the
// benchmark's own partition labels for the requested release. A missing
// file surfaces as the underlying open error.
func LoadPDBBindDesc(path string, version, shape int) (*TrainTestSplit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("scoring: failed to read descriptor CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("scoring: descriptor CSV %s has no data rows", path)
	}

	var trainFPs, testFPs []*fingerprint.Fingerprint
	var trainY, testY []float64
	for lineNo, record := range records[1:] {
		if len(record) != 5 {
			return nil, fmt.Errorf("scoring: %s row %d: want 5 columns, got %d", path, lineNo+2, len(record))
		}
		v, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("scoring: %s row %d: bad version: %w", path, lineNo+2, err)
		}
		if v != version {
			continue
		}
		act, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, fmt.Errorf("scoring: %s row %d: bad activity: %w", path, lineNo+2, err)
		}
		fp, err := decodeSparse(record[4], shape)
		if err != nil {
			return nil, fmt.Errorf("scoring: %s row %d: %w", path, lineNo+2, err)
		}
		switch record[2] {
		case pdbbind.SetGeneral, pdbbind.SetRefined:
			trainFPs = append(trainFPs, fp)
			trainY = append(trainY, act)
		case pdbbind.SetCore:
			testFPs = append(testFPs, fp)
			testY = append(testY, act)
		default:
			return nil, fmt.Errorf("scoring: %s row %d: unknown set %q", path, lineNo+2, record[2])
		}
	}
	if len(trainFPs) == 0 {
		return nil, fmt.Errorf("scoring: no training rows for pdbbind version %d in %s", version, path)
	}

	split := &TrainTestSplit{TrainY: trainY, TestY: testY}
	if split.TrainX, err = descriptor.Matrix(trainFPs, shape); err != nil {
		return nil, err
	}
	if len(testFPs) > 0 {
		if split.TestX, err = descriptor.Matrix(testFPs, shape); err != nil {
			return nil, err
		}
	}
	return split, nil
}
