// Package analysis implements the deterministic sequence analysis engine:
// nucleotide sequence properties, ORF detection, motif scanning, protein
// property prediction and pairwise comparison.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/helixlab/bioflow/domain"
)

// Motif is a named nucleotide pattern. Patterns use IUPAC degenerate codes
// (N, R, Y, W, S, K, M, B, D, H, V) as wildcards.
type Motif struct {
	Name    string
	Pattern string
}

// DefaultMotifs returns the built-in regulatory motif table.
func DefaultMotifs() []Motif {
	return []Motif{
		{Name: "TATA_box", Pattern: "TATAWA"},
		{Name: "CAAT_box", Pattern: "CAAT"},
		{Name: "PolyA_signal", Pattern: "AATAAA"},
		{Name: "Kozak_consensus", Pattern: "RCCATGG"},
	}
}

// iupac maps a degenerate nucleotide code to the set of bases it matches.
var iupac = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T", 'U': "T",
	'R': "AG", 'Y': "CT", 'K': "GT", 'M': "AC",
	'S': "CG", 'W': "AT",
	'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG",
	'N': "ACGT",
}

var stopCodons = map[string]bool{"TAA": true, "TAG": true, "TGA": true}

const startCodon = "ATG"

// Analyzer performs nucleotide sequence analysis.
type Analyzer struct {
	motifs       []Motif
	minORFLength int
	maxLength    int
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMotifs replaces the default motif table.
func WithMotifs(motifs []Motif) AnalyzerOption {
	return func(a *Analyzer) { a.motifs = motifs }
}

// WithMinORFLength sets the minimum ORF length in nucleotides, stop codon
// included. ORFs shorter than this are dropped.
func WithMinORFLength(n int) AnalyzerOption {
	return func(a *Analyzer) { a.minORFLength = n }
}

// WithMaxLength caps the accepted input sequence length.
func WithMaxLength(n int) AnalyzerOption {
	return func(a *Analyzer) { a.maxLength = n }
}

// NewAnalyzer creates an Analyzer with the default motif table.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		motifs:    DefaultMotifs(),
		maxLength: 1_000_000,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Normalize strips whitespace and digits from raw input and uppercases it.
// Digits are stripped so FASTA-style numbered lines paste cleanly.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
		case r >= '0' && r <= '9':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Analyze validates and analyzes a raw nucleotide sequence. It returns an
// InvalidSequenceError when the normalized input is empty, too long, or
// contains characters outside the alphabet {A,T,C,G,U,N}.
func (a *Analyzer) Analyze(raw string) (*domain.AnalysisResult, error) {
	seq := Normalize(raw)
	if seq == "" {
		return nil, &domain.InvalidSequenceError{Reason: "empty sequence"}
	}
	if a.maxLength > 0 && len(seq) > a.maxLength {
		return nil, &domain.InvalidSequenceError{
			Reason: fmt.Sprintf("sequence length %d exceeds limit %d", len(seq), a.maxLength),
		}
	}

	seqType := "DNA"
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'T', 'C', 'G', 'N':
		case 'U':
			seqType = "RNA"
		default:
			return nil, &domain.InvalidSequenceError{
				Reason: fmt.Sprintf("illegal character %q at position %d", seq[i], i),
			}
		}
	}

	// Codon and motif scans operate on the DNA form; RNA input is folded
	// back by replacing U with T.
	dna := strings.ReplaceAll(seq, "U", "T")

	return &domain.AnalysisResult{
		Valid:        true,
		SequenceType: seqType,
		Length:       len(seq),
		GCPercent:    gcPercent(dna),
		ORFs:         a.findORFs(dna),
		Motifs:       a.scanMotifs(dna),
		Sequence:     dna,
	}, nil
}

// gcPercent returns the G+C fraction as a percentage with one decimal place.
func gcPercent(seq string) float64 {
	gc := 0
	for i := 0; i < len(seq); i++ {
		if seq[i] == 'G' || seq[i] == 'C' {
			gc++
		}
	}
	return math.Round(float64(gc)/float64(len(seq))*1000) / 10
}

// findORFs scans every position for a start codon and extends in codon steps
// to the first in-frame stop. Overlapping ORFs from distinct starts are all
// retained; only the forward strand is scanned.
func (a *Analyzer) findORFs(seq string) []domain.ORF {
	var orfs []domain.ORF
	for i := 0; i+3 <= len(seq); i++ {
		if seq[i:i+3] != startCodon {
			continue
		}
		for j := i + 3; j+3 <= len(seq); j += 3 {
			if !stopCodons[seq[j:j+3]] {
				continue
			}
			end := j + 3
			if end-i >= a.minORFLength {
				orfs = append(orfs, domain.ORF{
					Start:    i,
					End:      end,
					Frame:    i%3 + 1,
					Length:   end - i,
					Sequence: seq[i:end],
				})
			}
			break
		}
	}
	return orfs
}

// scanMotifs finds all non-overlapping matches of the configured motif table.
func (a *Analyzer) scanMotifs(seq string) []domain.MotifHit {
	var hits []domain.MotifHit
	for _, m := range a.motifs {
		if m.Pattern == "" {
			continue
		}
		for i := 0; i+len(m.Pattern) <= len(seq); {
			if matchAt(seq, i, m.Pattern) {
				hits = append(hits, domain.MotifHit{
					Name:     m.Name,
					Position: i,
					Match:    seq[i : i+len(m.Pattern)],
				})
				i += len(m.Pattern)
			} else {
				i++
			}
		}
	}
	return hits
}

func matchAt(seq string, pos int, pattern string) bool {
	for k := 0; k < len(pattern); k++ {
		allowed, ok := iupac[pattern[k]]
		if !ok || !strings.ContainsRune(allowed, rune(seq[pos+k])) {
			return false
		}
	}
	return true
}
