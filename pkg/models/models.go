package models

import (
	"fmt"
	"sort"
)

// DomainMap maps a sub-type label to its network domain (sub_to_main_type).
// Several labels may share a domain.
type DomainMap map[string]string

// Domain returns the domain of a label
func (dm DomainMap) Domain(label string) (string, bool) {
	d, ok := dm[label]
	return d, ok
}

// Domains returns the distinct domains in sorted order. The position of a
// domain in this slice is its color index for renderers.
func (dm DomainMap) Domains() []string {
	seen := make(map[string]bool, len(dm))
	domains := make([]string, 0, len(dm))
	for _, d := range dm {
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)
	return domains
}

// DomainIndex returns the color index of the domain of a label, or -1
func (dm DomainMap) DomainIndex(label string) int {
	d, ok := dm[label]
	if !ok {
		return -1
	}
	domains := dm.Domains()
	idx := sort.SearchStrings(domains, d)
	if idx < len(domains) && domains[idx] == d {
		return idx
	}
	return -1
}

// Identity maps every domain to itself. Used when classification runs at
// domain level instead of sub-type level.
func (dm DomainMap) Identity() DomainMap {
	out := make(DomainMap, len(dm))
	for _, d := range dm {
		out[d] = d
	}
	return out
}

// Validate checks that every label has a domain
func (dm DomainMap) Validate(labels []string) error {
	for i, l := range labels {
		if _, ok := dm[l]; !ok {
			return fmt.Errorf("label %q (index %d) has no domain", l, i)
		}
	}
	return nil
}

// FeatureScore is one entry of an importance ranking
type FeatureScore struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// Ranking is an importance ranking, most important feature first
type Ranking []FeatureScore

// Names drops the scores and returns the feature names in rank order
func (r Ranking) Names() []string {
	names := make([]string, len(r))
	for i, fs := range r {
		names[i] = fs.Feature
	}
	return names
}

// SamplingMethod selects the class-balancing strategy of the classifier
type SamplingMethod string

const (
	SamplingNone        SamplingMethod = "None"
	SamplingRandomOver  SamplingMethod = "RandomOver"
	SamplingRandomUnder SamplingMethod = "RandomUnder"
	SamplingSMOTE       SamplingMethod = "SMOTE"
)

// Validate rejects unknown sampling methods
func (s SamplingMethod) Validate() error {
	switch s {
	case SamplingNone, SamplingRandomOver, SamplingRandomUnder, SamplingSMOTE:
		return nil
	}
	return fmt.Errorf("unknown sampling method %q", string(s))
}

// RunRecord is the serialized output of one classifier run
type RunRecord struct {
	Labels      []string    `json:"labels"`
	Confusion   [][]float64 `json:"confusion"`   // rows: true label, cols: predicted label
	Accuracy    float64     `json:"accuracy"`
	Importances Ranking     `json:"importances"` // descending importance
}
