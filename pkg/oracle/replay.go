// Package oracle provides classifier implementations for the ensemble
// runner: a replay of recorded runs and a client for a remote
// classification service.
package oracle

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

// Replay serves recorded runs in order, starting over after the last one.
// The request contents are ignored.
type Replay struct {
	records []models.RunRecord
	next    int
	mutex   sync.Mutex
}

// NewReplay creates a replay oracle over the given records
func NewReplay(records []models.RunRecord) (*Replay, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("replay needs at least one recorded run")
	}
	return &Replay{records: records}, nil
}

// LoadReplay reads a JSON Lines file with one RunRecord per line
func LoadReplay(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open runs file: %w", err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewReplay(records)
}

// ReadRecords decodes a stream of RunRecords. Blank lines are skipped.
func ReadRecords(r io.Reader) ([]models.RunRecord, error) {
	dec := json.NewDecoder(bufio.NewReader(r))

	var records []models.RunRecord
	for {
		var rec models.RunRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Len returns the number of distinct recorded runs
func (r *Replay) Len() int {
	return len(r.records)
}

// First returns the first recorded run
func (r *Replay) First() models.RunRecord {
	return r.records[0]
}

// Classify returns the next recorded run
func (r *Replay) Classify(ctx context.Context, req ensemble.Request) (*ensemble.RunOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.Lock()
	rec := r.records[r.next]
	r.next = (r.next + 1) % len(r.records)
	r.mutex.Unlock()

	return ensemble.FromRecord(rec)
}
