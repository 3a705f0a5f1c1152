package chem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// ParsePDBFile reads a PDB file from disk. See ParsePDB.
func ParsePDBFile(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdb file: %w", err)
	}
	defer f.Close()

	mol, err := ParsePDB(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return mol, nil
}

// ParsePDB parses ATOM and HETATM records into a Molecule. Hydrogens and
// alternate locations other than the primary one are skipped. Covalent
// bonds are perceived from geometry afterwards; CONECT records are ignored
// because depositions carry them inconsistently.
func ParsePDB(r io.Reader) (*Molecule, error) {
	mol := &Molecule{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "HEADER"):
			if mol.Title == "" && len(line) > 10 {
				mol.Title = strings.TrimSpace(line[10:])
			}
		case strings.HasPrefix(line, "ATOM  "), strings.HasPrefix(line, "HETATM"):
			atom, ok, err := parsePDBAtom(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if ok {
				mol.Atoms = append(mol.Atoms, atom)
			}
		case strings.HasPrefix(line, "ENDMDL"):
			// Only the first model of an NMR ensemble is used.
			goto done
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
done:
	if len(mol.Atoms) == 0 {
		return nil, fmt.Errorf("no atom records found")
	}
	mol.InferBonds()
	return mol, nil
}

func parsePDBAtom(line string) (Atom, bool, error) {
	if len(line) < 54 {
		return Atom{}, false, fmt.Errorf("truncated atom record")
	}
	// Columns per the wwPDB format description (1-based, inclusive):
	// 13-16 atom name, 17 altLoc, 18-20 residue, 22 chain, 23-26 resSeq,
	// 31-54 coordinates, 77-78 element.
	altLoc := line[16]
	if altLoc != ' ' && altLoc != 'A' {
		return Atom{}, false, nil
	}
	name := strings.TrimSpace(line[12:16])
	residue := strings.TrimSpace(line[17:20])

	element := ""
	if len(line) >= 78 {
		element = strings.ToUpper(strings.TrimSpace(line[76:78]))
	}
	if element == "" {
		element = elementFromAtomName(name)
	}
	if element == "H" || element == "D" || element == "" {
		return Atom{}, false, nil
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
	if err != nil {
		return Atom{}, false, fmt.Errorf("bad x coordinate: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
	if err != nil {
		return Atom{}, false, fmt.Errorf("bad y coordinate: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
	if err != nil {
		return Atom{}, false, fmt.Errorf("bad z coordinate: %w", err)
	}

	resSeq := 0
	if len(line) >= 26 {
		if n, err := strconv.Atoi(strings.TrimSpace(line[22:26])); err == nil {
			resSeq = n
		}
	}
	chain := ""
	if len(line) >= 22 && line[21] != ' ' {
		chain = string(line[21])
	}

	return Atom{
		Element: element,
		Coord:   [3]float64{x, y, z},
		Residue: residue,
		ResSeq:  resSeq,
		Chain:   chain,
		IsWater: IsWaterResidue(residue),
	}, true, nil
}

// elementFromAtomName recovers the element when columns 77-78 are absent.
// PDB atom names right-pad one-letter elements ("CA" is a calcium HETATM
// only when the element columns say so; from the name alone it is an
// alpha carbon), so the first alphabetic character wins.
func elementFromAtomName(name string) string {
	for _, r := range name {
		if unicode.IsLetter(r) {
			return strings.ToUpper(string(r))
		}
	}
	return ""
}
