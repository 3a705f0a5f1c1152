package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseMOL2File reads a Tripos MOL2 file from disk. See ParseMOL2.
func ParseMOL2File(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mol2 file: %w", err)
	}
	defer f.Close()

	mol, err := ParseMOL2(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return mol, nil
}

// ParseMOL2 parses the first molecule of a Tripos MOL2 stream. The BOND
// section is authoritative for connectivity; bonds to dropped hydrogens
// are discarded alongside the hydrogens themselves.
func ParseMOL2(r io.Reader) (*Molecule, error) {
	mol := &Molecule{}
	// Maps the 1-based atom id of the file to an index into mol.Atoms,
	// or -1 for skipped hydrogens.
	idMap := make(map[int]int)

	scanner := bufio.NewScanner(r)
	section := ""
	molLine := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "@<TRIPOS>") {
			section = strings.TrimPrefix(line, "@<TRIPOS>")
			if section == "MOLECULE" {
				if len(idMap) > 0 {
					break // multi-molecule file, keep the first
				}
				molLine = 0
			}
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch section {
		case "MOLECULE":
			molLine++
			if molLine == 1 {
				mol.Title = line
			}
		case "ATOM":
			fields := strings.Fields(line)
			if len(fields) < 6 {
				return nil, fmt.Errorf("short atom record: %q", line)
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("bad atom id %q: %w", fields[0], err)
			}
			x, err1 := strconv.ParseFloat(fields[2], 64)
			y, err2 := strconv.ParseFloat(fields[3], 64)
			z, err3 := strconv.ParseFloat(fields[4], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("bad coordinates in atom %d", id)
			}
			element := elementFromSybyl(fields[5])
			if element == "H" || element == "" {
				idMap[id] = -1
				continue
			}
			residue := ""
			if len(fields) >= 8 {
				residue = fields[7]
			}
			idMap[id] = len(mol.Atoms)
			mol.Atoms = append(mol.Atoms, Atom{
				Element: element,
				Coord:   [3]float64{x, y, z},
				Residue: residue,
				IsWater: IsWaterResidue(residue),
			})
		case "BOND":
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, fmt.Errorf("short bond record: %q", line)
			}
			a1, err1 := strconv.Atoi(fields[1])
			a2, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("bad bond record: %q", line)
			}
			i, ok1 := idMap[a1]
			j, ok2 := idMap[a2]
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("bond references unknown atom: %q", line)
			}
			if i < 0 || j < 0 {
				continue // bond to a dropped hydrogen
			}
			mol.Atoms[i].Bonds = append(mol.Atoms[i].Bonds, j)
			mol.Atoms[j].Bonds = append(mol.Atoms[j].Bonds, i)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(mol.Atoms) == 0 {
		return nil, fmt.Errorf("no atom records found")
	}
	return mol, nil
}

// elementFromSybyl extracts the element from a SYBYL atom type such as
// "C.ar", "N.4" or "Cl".
func elementFromSybyl(t string) string {
	if i := strings.IndexByte(t, '.'); i >= 0 {
		t = t[:i]
	}
	return strings.ToUpper(t)
}
