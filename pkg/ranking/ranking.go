package ranking

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

var (
	// ErrNoRankings is returned when there is nothing to tally
	ErrNoRankings = errors.New("no rankings to tally")

	// ErrDegenerateRanking is returned when fewer distinct features exist
	// than a consumer asked for
	ErrDegenerateRanking = errors.New("degenerate ranking")
)

// FeatureCount is how often a feature occupied a given rank
type FeatureCount struct {
	Feature string `json:"feature"`
	Count   int    `json:"count"`
}

// Consensus is the per-rank frequency table of an ensemble
type Consensus struct {
	Features []string         `json:"features"` // feature order as supplied
	Freq     map[string][]int `json:"freq"`     // feature -> count per rank position
	Runs     int              `json:"runs"`
}

// Tally counts, for every rank position, how many runs put each feature
// there. Scores are ignored; only order matters.
func Tally(rankings []models.Ranking, featureOrder []string) (*Consensus, error) {
	if len(rankings) == 0 {
		return nil, ErrNoRankings
	}

	positions := len(featureOrder)
	freq := make(map[string][]int, positions)
	for _, f := range featureOrder {
		if _, dup := freq[f]; dup {
			return nil, fmt.Errorf("duplicate feature %q in feature order", f)
		}
		freq[f] = make([]int, positions)
	}

	for run, r := range rankings {
		if len(r) != positions {
			return nil, fmt.Errorf("run %d ranks %d features, expected %d", run, len(r), positions)
		}
		seen := make(map[string]bool, positions)
		for pos, fs := range r {
			counts, ok := freq[fs.Feature]
			if !ok {
				return nil, fmt.Errorf("run %d: unknown feature %q at rank %d", run, fs.Feature, pos)
			}
			if seen[fs.Feature] {
				return nil, fmt.Errorf("run %d: feature %q ranked twice", run, fs.Feature)
			}
			seen[fs.Feature] = true
			counts[pos]++
		}
	}

	return &Consensus{
		Features: append([]string(nil), featureOrder...),
		Freq:     freq,
		Runs:     len(rankings),
	}, nil
}

// Positions returns the number of rank positions
func (c *Consensus) Positions() int {
	return len(c.Features)
}

// RankTotal sums the counts of all features at a rank. Equals Runs for
// every valid rank.
func (c *Consensus) RankTotal(rank int) int {
	total := 0
	for _, f := range c.Features {
		total += c.Freq[f][rank]
	}
	return total
}

// Dominant lists, for every rank, all features with their counts, most
// frequent first. Ties are broken by feature name ascending.
func (c *Consensus) Dominant() [][]FeatureCount {
	out := make([][]FeatureCount, c.Positions())
	for rank := range out {
		entries := make([]FeatureCount, 0, len(c.Features))
		for _, f := range c.Features {
			entries = append(entries, FeatureCount{Feature: f, Count: c.Freq[f][rank]})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Count != entries[j].Count {
				return entries[i].Count > entries[j].Count
			}
			return entries[i].Feature < entries[j].Feature
		})
		out[rank] = entries
	}
	return out
}

// SelectDistinct picks k distinct features from a dominant ordering. Rank r
// contributes the first feature in its list that has not been picked yet;
// once ranks 0..k-1 are used up, later ranks are walked the same way.
func SelectDistinct(dominant [][]FeatureCount, k int) ([]string, error) {
	picked := make([]string, 0, k)
	used := make(map[string]bool, k)

	for rank := 0; rank < len(dominant) && len(picked) < k; rank++ {
		for _, fc := range dominant[rank] {
			if !used[fc.Feature] {
				used[fc.Feature] = true
				picked = append(picked, fc.Feature)
				break
			}
		}
	}

	if len(picked) < k {
		return nil, fmt.Errorf("%w: need %d distinct features, have %d", ErrDegenerateRanking, k, len(picked))
	}
	return picked, nil
}

// TopTwo returns the two most informative distinct features
func TopTwo(dominant [][]FeatureCount) (string, string, error) {
	picked, err := SelectDistinct(dominant, 2)
	if err != nil {
		return "", "", err
	}
	return picked[0], picked[1], nil
}

// MeanScores averages the importance score of every feature across runs
func MeanScores(rankings []models.Ranking) map[string]float64 {
	scores := make(map[string][]float64)
	for _, r := range rankings {
		for _, fs := range r {
			scores[fs.Feature] = append(scores[fs.Feature], fs.Score)
		}
	}
	mean := make(map[string]float64, len(scores))
	for f, s := range scores {
		mean[f] = floats.Sum(s) / float64(len(s))
	}
	return mean
}

// IndexOf returns the column of a feature in featureOrder, or -1
func IndexOf(featureOrder []string, feature string) int {
	for i, f := range featureOrder {
		if f == feature {
			return i
		}
	}
	return -1
}
