package analysis

import (
	"math"
	"strings"

	"github.com/helixlab/bioflow/domain"
)

// Alignment scoring. Gap columns count as mismatches for identity.
const (
	matchScore    = 2
	mismatchScore = -1
	gapScore      = -2
)

// Homology thresholds over the similarity score.
const (
	highHomologyThreshold     = 70.0
	moderateHomologyThreshold = 40.0
)

// purine reports whether the base is a purine (A or G).
func purine(b byte) bool { return b == 'A' || b == 'G' }

// Comparator aligns two nucleotide sequences with a global gap-penalized
// dynamic program (Needleman-Wunsch). Equal-length identical-layout inputs
// are just the degenerate gap-free case.
type Comparator struct{}

// NewComparator creates a Comparator.
func NewComparator() *Comparator {
	return &Comparator{}
}

// Compare aligns a against b and scores the alignment. Both inputs must be
// valid nucleotide sequences.
func (c *Comparator) Compare(a, b string) (*domain.ComparisonResult, error) {
	sa, err := validComparand(a)
	if err != nil {
		return nil, err
	}
	sb, err := validComparand(b)
	if err != nil {
		return nil, err
	}

	alignedA, alignedB, score := align(sa, sb)

	matches, partial := 0, 0
	markers := make([]byte, len(alignedA))
	for i := range markers {
		x, y := alignedA[i], alignedB[i]
		switch {
		case x == '-' || y == '-':
			markers[i] = ' '
		case x == y:
			markers[i] = '|'
			matches++
		case purine(x) == purine(y):
			// Transition (purine<->purine or pyrimidine<->pyrimidine),
			// weighted below strict identity.
			markers[i] = ':'
			partial++
		default:
			markers[i] = ' '
		}
	}

	cols := float64(len(alignedA))
	identity := math.Round(float64(matches)/cols*1000) / 10
	similarity := math.Round((float64(matches)+0.5*float64(partial))/cols*1000) / 10

	return &domain.ComparisonResult{
		AlignedA:   alignedA,
		Markers:    string(markers),
		AlignedB:   alignedB,
		Score:      score,
		Identity:   identity,
		Similarity: similarity,
		Homology:   homologyLabel(similarity),
	}, nil
}

func validComparand(raw string) (string, error) {
	seq := strings.ReplaceAll(Normalize(raw), "U", "T")
	if seq == "" {
		return "", &domain.InvalidSequenceError{Reason: "empty sequence"}
	}
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'T', 'C', 'G', 'N':
		default:
			return "", &domain.InvalidSequenceError{Reason: "illegal character in comparand"}
		}
	}
	return seq, nil
}

func homologyLabel(similarity float64) string {
	switch {
	case similarity >= highHomologyThreshold:
		return "high homology"
	case similarity >= moderateHomologyThreshold:
		return "moderate homology"
	default:
		return "low homology"
	}
}

// align runs Needleman-Wunsch and returns the two gapped rows plus the
// alignment score.
func align(a, b string) (string, string, int) {
	n, m := len(a), len(b)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
		dp[i][0] = i * gapScore
	}
	for j := 0; j <= m; j++ {
		dp[0][j] = j * gapScore
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			s := mismatchScore
			if a[i-1] == b[j-1] {
				s = matchScore
			}
			best := dp[i-1][j-1] + s
			if v := dp[i-1][j] + gapScore; v > best {
				best = v
			}
			if v := dp[i][j-1] + gapScore; v > best {
				best = v
			}
			dp[i][j] = best
		}
	}

	var ra, rb []byte
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+pairScore(a[i-1], b[j-1]):
			ra = append(ra, a[i-1])
			rb = append(rb, b[j-1])
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+gapScore:
			ra = append(ra, a[i-1])
			rb = append(rb, '-')
			i--
		default:
			ra = append(ra, '-')
			rb = append(rb, b[j-1])
			j--
		}
	}
	reverse(ra)
	reverse(rb)
	return string(ra), string(rb), dp[n][m]
}

func pairScore(x, y byte) int {
	if x == y {
		return matchScore
	}
	return mismatchScore
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
