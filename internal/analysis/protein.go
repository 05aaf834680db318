package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/helixlab/bioflow/domain"
)

// codonTable is the standard genetic code. '*' marks a stop codon.
var codonTable = map[string]byte{
	"ATA": 'I', "ATC": 'I', "ATT": 'I', "ATG": 'M',
	"ACA": 'T', "ACC": 'T', "ACG": 'T', "ACT": 'T',
	"AAC": 'N', "AAT": 'N', "AAA": 'K', "AAG": 'K',
	"AGC": 'S', "AGT": 'S', "AGA": 'R', "AGG": 'R',
	"CTA": 'L', "CTC": 'L', "CTG": 'L', "CTT": 'L',
	"CCA": 'P', "CCC": 'P', "CCG": 'P', "CCT": 'P',
	"CAC": 'H', "CAT": 'H', "CAA": 'Q', "CAG": 'Q',
	"CGA": 'R', "CGC": 'R', "CGG": 'R', "CGT": 'R',
	"GTA": 'V', "GTC": 'V', "GTG": 'V', "GTT": 'V',
	"GCA": 'A', "GCC": 'A', "GCG": 'A', "GCT": 'A',
	"GAC": 'D', "GAT": 'D', "GAA": 'E', "GAG": 'E',
	"GGA": 'G', "GGC": 'G', "GGG": 'G', "GGT": 'G',
	"TCA": 'S', "TCC": 'S', "TCG": 'S', "TCT": 'S',
	"TTC": 'F', "TTT": 'F', "TTA": 'L', "TTG": 'L',
	"TAC": 'Y', "TAT": 'Y', "TAA": '*', "TAG": '*',
	"TGC": 'C', "TGT": 'C', "TGA": '*', "TGG": 'W',
}

// residueMass holds average residue masses in daltons (monomer mass minus
// one water, i.e. the mass each residue contributes inside a peptide chain).
var residueMass = map[byte]float64{
	'A': 71.0788, 'R': 156.1875, 'N': 114.1038, 'D': 115.0886,
	'C': 103.1388, 'E': 129.1155, 'Q': 128.1307, 'G': 57.0519,
	'H': 137.1411, 'I': 113.1594, 'L': 113.1594, 'K': 128.1741,
	'M': 131.1926, 'F': 147.1766, 'P': 97.1167, 'S': 87.0782,
	'T': 101.1051, 'W': 186.2132, 'Y': 163.1760, 'V': 99.1326,
}

// waterMass is added once per peptide for the free termini.
const waterMass = 18.0153

// unknownResidueMass is used for 'X' residues translated from codons
// containing wildcards.
const unknownResidueMass = 110.0

// kyteDoolittle is the Kyte-Doolittle hydropathy index.
var kyteDoolittle = map[byte]float64{
	'A': 1.8, 'R': -4.5, 'N': -3.5, 'D': -3.5, 'C': 2.5,
	'Q': -3.5, 'E': -3.5, 'G': -0.4, 'H': -3.2, 'I': 4.5,
	'L': 3.8, 'K': -3.9, 'M': 1.9, 'F': 2.8, 'P': -1.6,
	'S': -0.8, 'T': -0.7, 'W': -0.9, 'Y': -1.3, 'V': 4.2,
}

// Predictor derives protein properties from ORF nucleotide sequences.
type Predictor struct {
	signalWindow     int
	signalHydropathy float64
	signalMinCharge  int
}

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithSignalWindow sets how many N-terminal residues the signal-peptide
// heuristic inspects.
func WithSignalWindow(n int) PredictorOption {
	return func(p *Predictor) { p.signalWindow = n }
}

// WithSignalHydropathy sets the mean hydropathy the h-region must exceed.
func WithSignalHydropathy(v float64) PredictorOption {
	return func(p *Predictor) { p.signalHydropathy = v }
}

// WithSignalMinCharge sets the minimum net positive charge of the n-region.
func WithSignalMinCharge(n int) PredictorOption {
	return func(p *Predictor) { p.signalMinCharge = n }
}

// NewPredictor creates a Predictor with default heuristic thresholds.
func NewPredictor(opts ...PredictorOption) *Predictor {
	p := &Predictor{
		signalWindow:     20,
		signalHydropathy: 1.6,
		signalMinCharge:  1,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Predict translates an ORF sequence and estimates protein properties. It
// returns an InvalidORFError when the sequence does not start with the start
// codon or its length is not a multiple of three.
func (p *Predictor) Predict(orfSeq string) (*domain.ProteinProfile, error) {
	seq := strings.ReplaceAll(Normalize(orfSeq), "U", "T")
	if len(seq) < 3 || seq[:3] != startCodon {
		return nil, &domain.InvalidORFError{Reason: "sequence does not start with ATG"}
	}
	if len(seq)%3 != 0 {
		return nil, &domain.InvalidORFError{
			Reason: fmt.Sprintf("length %d is not a multiple of 3", len(seq)),
		}
	}

	residues := translate(seq)
	return &domain.ProteinProfile{
		Residues:        residues,
		Length:          len(residues),
		MolecularWeight: molecularWeight(residues),
		Hydrophobicity:  meanHydropathy(residues),
		SignalPeptide:   p.detectSignalPeptide(residues),
	}, nil
}

// translate converts codons to residues, stopping at the first stop codon.
// Codons not in the table (wildcard bases) become 'X'.
func translate(seq string) string {
	var b strings.Builder
	for i := 0; i+3 <= len(seq); i += 3 {
		aa, ok := codonTable[seq[i:i+3]]
		if !ok {
			aa = 'X'
		}
		if aa == '*' {
			break
		}
		b.WriteByte(aa)
	}
	return b.String()
}

// molecularWeight sums average residue masses plus one water for the termini.
func molecularWeight(residues string) float64 {
	if residues == "" {
		return 0
	}
	total := waterMass
	for i := 0; i < len(residues); i++ {
		m, ok := residueMass[residues[i]]
		if !ok {
			m = unknownResidueMass
		}
		total += m
	}
	return math.Round(total*100) / 100
}

// meanHydropathy returns the average Kyte-Doolittle index over the peptide.
func meanHydropathy(residues string) float64 {
	if residues == "" {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(residues); i++ {
		sum += kyteDoolittle[residues[i]]
	}
	return math.Round(sum/float64(len(residues))*100) / 100
}

// detectSignalPeptide is a coarse heuristic: a positively charged n-region
// (first 5 residues) followed by a hydrophobic h-region within the signal
// window. It flags candidates, it does not guarantee cleavage.
func (p *Predictor) detectSignalPeptide(residues string) bool {
	if len(residues) < p.signalWindow {
		return false
	}
	nRegion := residues[:5]
	charge := 0
	for i := 0; i < len(nRegion); i++ {
		switch nRegion[i] {
		case 'K', 'R':
			charge++
		case 'D', 'E':
			charge--
		}
	}
	if charge < p.signalMinCharge {
		return false
	}

	hRegion := residues[5:p.signalWindow]
	sum := 0.0
	for i := 0; i < len(hRegion); i++ {
		sum += kyteDoolittle[hRegion[i]]
	}
	return sum/float64(len(hRegion)) >= p.signalHydropathy
}
