// Package pdbbind reads the on-disk layout of the PDBBind benchmark:
// versioned index files assigning every complex to the general, refined or
// core partition together with its measured binding affinity, plus one
// directory per complex holding the protein and ligand structure files.
package pdbbind

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Partition labels within a PDBBind release. The core set doubles as the
// held-out test partition; general and refined form the training set.
const (
	SetGeneral = "general"
	SetRefined = "refined"
	SetCore    = "core"
)

// Entry is one protein-ligand complex of the benchmark.
type Entry struct {
	PDBID    string
	Activity float64 // -logKd/Ki
	Set      string
	Version  int
}

// Source is a loaded view over one or more PDBBind releases rooted at a
// single directory.
type Source struct {
	Dir     string
	Entries []Entry
}

// index file name patterns per release, tried in order. Later releases
// moved the index directory around, hence the fallbacks.
var indexPatterns = []struct {
	set      string
	patterns []string
}{
	{SetGeneral, []string{
		"v%d/index/INDEX_general_PL_data.%d",
		"v%d/INDEX_general_PL_data.%d",
	}},
	{SetRefined, []string{
		"v%d/index/INDEX_refined_data.%d",
		"v%d/INDEX_refined_data.%d",
	}},
	{SetCore, []string{
		"v%d/index/INDEX_core_data.%d",
		"v%d/INDEX_core_data.%d",
		"v%d/index/CoreSet.dat",
	}},
}

// Load reads the index files of the requested releases. A complex listed
// in several partitions keeps the most specific one (core over refined
// over general), matching how the benchmark publishes its splits.
func Load(dir string, versions []int) (*Source, error) {
	if len(versions) == 0 {
		return nil, fmt.Errorf("pdbbind: no versions requested")
	}

	src := &Source{Dir: dir}
	for _, version := range versions {
		byID := make(map[string]Entry)
		found := false
		for _, pat := range indexPatterns {
			path, ok := resolveIndex(dir, pat.patterns, version)
			if !ok {
				continue
			}
			found = true
			entries, err := parseIndex(path, pat.set, version)
			if err != nil {
				return nil, err
			}
			// Later, more specific partitions overwrite earlier ones.
			for _, e := range entries {
				byID[e.PDBID] = e
			}
		}
		if !found {
			return nil, fmt.Errorf("pdbbind: no index files for version %d under %s", version, dir)
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			src.Entries = append(src.Entries, byID[id])
		}
	}
	return src, nil
}

func resolveIndex(dir string, patterns []string, version int) (string, bool) {
	for _, p := range patterns {
		var path string
		if strings.Count(p, "%d") == 2 {
			path = filepath.Join(dir, fmt.Sprintf(p, version, version))
		} else {
			path = filepath.Join(dir, fmt.Sprintf(p, version))
		}
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// parseIndex reads one INDEX file. Lines look like
//
//	2xyz  1.80  2010  6.52  Kd=300nM  // 2xyz.pdf (ligand name)
//
// with '#' comment lines interleaved. Only the PDB id and the -logKd/Ki
// column are consumed.
func parseIndex(path, set string, version int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdbbind: failed to open index: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("pdbbind: %s line %d: want at least 4 columns, got %d", path, lineNo, len(fields))
		}
		act, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("pdbbind: %s line %d: bad affinity %q: %w", path, lineNo, fields[3], err)
		}
		entries = append(entries, Entry{
			PDBID:    strings.ToLower(fields[0]),
			Activity: act,
			Set:      set,
			Version:  version,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// set directories probed when resolving a complex, most common first.
var setDirs = []string{
	"general-set-except-refined",
	"general-set",
	"refined-set",
	"core-set",
}

// ProteinPath resolves the receptor PDB file of an entry.
func (s *Source) ProteinPath(e Entry) (string, error) {
	return s.resolve(e, e.PDBID+"_protein.pdb")
}

// LigandPath resolves the ligand MOL2 file of an entry.
func (s *Source) LigandPath(e Entry) (string, error) {
	return s.resolve(e, e.PDBID+"_ligand.mol2")
}

func (s *Source) resolve(e Entry, filename string) (string, error) {
	for _, setDir := range setDirs {
		path := filepath.Join(s.Dir, fmt.Sprintf("v%d", e.Version), setDir, e.PDBID, filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("pdbbind: %s not found for %s in v%d", filename, e.PDBID, e.Version)
}
