package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gilchrisn/network-type-similarity/pkg/pipeline"
)

// OutputWriter interface for flexible output generation
type OutputWriter interface {
	WriteHeatmap(result *pipeline.Result, path string) error
	WriteDistance(result *pipeline.Result, path string) error
	WriteEdges(result *pipeline.Result, path string) error
	WriteGraph(result *pipeline.Result, path string) error
	WriteFeatures(result *pipeline.Result, path string) error
	WriteEmbedding(result *pipeline.Result, path string) error
	WriteAll(result *pipeline.Result, outputDir string, prefix string) ([]string, error)
}

// FileWriter implements OutputWriter for file-based output
type FileWriter struct{}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() OutputWriter {
	return &FileWriter{}
}

// WriteAll writes every view to outputDir and returns the written paths
func (fw *FileWriter) WriteAll(result *pipeline.Result, outputDir string, prefix string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	steps := []struct {
		name  string
		ext   string
		write func(*pipeline.Result, string) error
	}{
		{"heatmap", "heatmap.json", fw.WriteHeatmap},
		{"distance", "distance.json", fw.WriteDistance},
		{"edges", "edges", fw.WriteEdges},
		{"graph", "graph.json", fw.WriteGraph},
		{"features", "features.json", fw.WriteFeatures},
		{"embedding", "embedding.json", fw.WriteEmbedding},
	}

	paths := make([]string, 0, len(steps))
	for _, step := range steps {
		path := filepath.Join(outputDir, fmt.Sprintf("%s.%s", prefix, step.ext))
		if err := step.write(result, path); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", step.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteHeatmap writes the averaged and normalized matrices
func (fw *FileWriter) WriteHeatmap(result *pipeline.Result, path string) error {
	return writeJSON(path, Heatmap(result))
}

// WriteDistance writes the distance matrix
func (fw *FileWriter) WriteDistance(result *pipeline.Result, path string) error {
	return writeJSON(path, Distance(result))
}

// WriteEdges writes one "u v weight" line per graph edge, using labels as
// node names
func (fw *FileWriter) WriteEdges(result *pipeline.Result, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, e := range result.Graph.Edges() {
		if _, err := fmt.Fprintf(file, "%s %s %.6f\n", result.Labels[e.From], result.Labels[e.To], e.Weight); err != nil {
			return err
		}
	}
	return nil
}

// WriteGraph writes nodes with layout and size hints plus edges
func (fw *FileWriter) WriteGraph(result *pipeline.Result, path string) error {
	view, err := Graph(result)
	if err != nil {
		return err
	}
	return writeJSON(path, view)
}

// WriteFeatures writes the feature consensus
func (fw *FileWriter) WriteFeatures(result *pipeline.Result, path string) error {
	return writeJSON(path, Features(result))
}

// WriteEmbedding writes the 2D placement of the distance view
func (fw *FileWriter) WriteEmbedding(result *pipeline.Result, path string) error {
	view, err := Embedding(result)
	if err != nil {
		return err
	}
	return writeJSON(path, view)
}

func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
