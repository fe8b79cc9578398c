// Package dataset loads the labeled network-feature table that the
// classifier runs on.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

const (
	ColumnNetworkType = "NetworkType"
	ColumnSubType     = "SubType"
)

// Options selects columns and filters classes
type Options struct {
	Features     []string // feature columns, in the order they become columns of X
	IsSubType    bool     // label by SubType instead of NetworkType
	AtLeast      int      // drop classes with fewer instances
	ExcludeTypes []string // drop rows of these network types
}

// Dataset is the classifier input
type Dataset struct {
	X             [][]float64
	Y             []string
	SubToMainType models.DomainMap
	FeatureOrder  []string
}

// LoadCSV reads a feature table from a file
func LoadCSV(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses a feature table. The header must contain NetworkType,
// SubType and every requested feature.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	if len(opts.Features) == 0 {
		return nil, fmt.Errorf("no feature columns requested")
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	typeCol, ok := index[ColumnNetworkType]
	if !ok {
		return nil, fmt.Errorf("missing column %q", ColumnNetworkType)
	}
	subCol, ok := index[ColumnSubType]
	if !ok {
		return nil, fmt.Errorf("missing column %q", ColumnSubType)
	}
	featureCols := make([]int, len(opts.Features))
	for i, name := range opts.Features {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("missing feature column %q", name)
		}
		featureCols[i] = col
	}

	excluded := make(map[string]bool, len(opts.ExcludeTypes))
	for _, t := range opts.ExcludeTypes {
		excluded[t] = true
	}

	var (
		X       [][]float64
		Y       []string
		domains = make(models.DomainMap)
		line    = 1
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		networkType, subType := record[typeCol], record[subCol]
		if excluded[networkType] {
			continue
		}

		row := make([]float64, len(featureCols))
		for i, col := range featureCols {
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line, opts.Features[i], err)
			}
			row[i] = v
		}

		label := networkType
		if opts.IsSubType {
			label = subType
			if prev, ok := domains[subType]; ok && prev != networkType {
				return nil, fmt.Errorf("line %d: sub-type %q belongs to both %q and %q", line, subType, prev, networkType)
			}
		}
		domains[label] = networkType

		X = append(X, row)
		Y = append(Y, label)
	}

	X, Y = FilterClasses(X, Y, opts.AtLeast)
	kept := make(models.DomainMap)
	for _, y := range Y {
		kept[y] = domains[y]
	}

	return &Dataset{
		X:             X,
		Y:             Y,
		SubToMainType: kept,
		FeatureOrder:  append([]string(nil), opts.Features...),
	}, nil
}

// FilterClasses drops every instance whose class has fewer than atLeast
// instances
func FilterClasses(X [][]float64, Y []string, atLeast int) ([][]float64, []string) {
	counts := make(map[string]int)
	for _, y := range Y {
		counts[y]++
	}

	var fx [][]float64
	var fy []string
	for i, y := range Y {
		if counts[y] >= atLeast {
			fx = append(fx, X[i])
			fy = append(fy, y)
		}
	}
	return fx, fy
}

// Classes returns the distinct labels in sorted order with their counts
func (ds *Dataset) Classes() ([]string, map[string]int) {
	counts := make(map[string]int)
	for _, y := range ds.Y {
		counts[y]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels, counts
}

// LoadDomainMap reads a YAML mapping of sub-type to domain
func LoadDomainMap(path string) (models.DomainMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read domain map: %w", err)
	}
	var dm models.DomainMap
	if err := yaml.Unmarshal(data, &dm); err != nil {
		return nil, fmt.Errorf("failed to parse domain map %s: %w", path, err)
	}
	if len(dm) == 0 {
		return nil, fmt.Errorf("domain map %s is empty", path)
	}
	return dm, nil
}

// OneVsRest relabels Y as a binary problem: label stays, everything else
// becomes "non-<label>"
func OneVsRest(Y []string, label string) []string {
	other := "non-" + label
	out := make([]string, len(Y))
	for i, y := range Y {
		if y == label {
			out[i] = label
		} else {
			out[i] = other
		}
	}
	return out
}
