package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gilchrisn/network-type-similarity/pkg/ensemble"
	"github.com/gilchrisn/network-type-similarity/pkg/models"
)

const runsJSONL = `{"labels":["A","B"],"confusion":[[3,1],[0,4]],"accuracy":0.875,"importances":[{"feature":"f1","score":0.7},{"feature":"f2","score":0.3}]}

{"labels":["A","B"],"confusion":[[4,0],[1,3]],"accuracy":0.875,"importances":[{"feature":"f2","score":0.6},{"feature":"f1","score":0.4}]}
`

func TestReplayWrapsAround(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(runsJSONL))
	if err != nil {
		t.Fatalf("ReadRecords failed: %v", err)
	}
	replay, err := NewReplay(records)
	if err != nil {
		t.Fatalf("NewReplay failed: %v", err)
	}
	if replay.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", replay.Len())
	}

	want := []float64{3, 4, 3}
	for i, w := range want {
		out, err := replay.Classify(context.Background(), ensemble.Request{})
		if err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
		if got := out.Confusion.At(0, 0); got != w {
			t.Errorf("call %d: cell (0,0) = %v, want %v", i, got, w)
		}
	}
}

func TestReplayConcurrent(t *testing.T) {
	records, _ := ReadRecords(strings.NewReader(runsJSONL))
	replay, _ := NewReplay(records)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0.0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := replay.Classify(context.Background(), ensemble.Request{})
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			total += out.Confusion.At(0, 0)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// five of each record regardless of interleaving
	if total != 35 {
		t.Errorf("sum of (0,0) cells = %v, want 35", total)
	}
}

func TestReplayErrors(t *testing.T) {
	if _, err := NewReplay(nil); err == nil {
		t.Error("expected error for empty replay")
	}
	if _, err := ReadRecords(strings.NewReader(`{"labels":`)); err == nil {
		t.Error("expected error for truncated record")
	}

	broken, _ := NewReplay([]models.RunRecord{{Labels: []string{"A", "B"}, Confusion: [][]float64{{1, 2}}}})
	_, err := broken.Classify(context.Background(), ensemble.Request{})
	if !errors.Is(err, ensemble.ErrMalformedOutput) {
		t.Errorf("expected ErrMalformedOutput, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records, _ := ReadRecords(strings.NewReader(runsJSONL))
	replay, _ := NewReplay(records)
	if _, err := replay.Classify(ctx, ensemble.Request{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLoadReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	if err := os.WriteFile(path, []byte(runsJSONL), 0644); err != nil {
		t.Fatal(err)
	}
	replay, err := LoadReplay(path)
	if err != nil {
		t.Fatalf("LoadReplay failed: %v", err)
	}
	if replay.Len() != 2 {
		t.Errorf("Len() = %d, want 2", replay.Len())
	}
}

func TestHTTPClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req ClassifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Sampling != models.SamplingSMOTE || len(req.FeatureOrder) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(models.RunRecord{
			Labels:    []string{"A", "B"},
			Confusion: [][]float64{{2, 0}, {1, 1}},
			Accuracy:  0.75,
			Importances: models.Ranking{
				{Feature: "f1", Score: 0.9},
				{Feature: "f2", Score: 0.1},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClassifier(server.URL, 5*time.Second)
	out, err := client.Classify(context.Background(), ensemble.Request{
		X:            [][]float64{{1, 2}},
		Y:            []string{"A"},
		FeatureOrder: []string{"f1", "f2"},
		Sampling:     models.SamplingSMOTE,
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if out.Accuracy != 0.75 || out.Confusion.At(1, 0) != 1 || out.Importances[0].Feature != "f1" {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestHTTPClassifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewHTTPClassifier(server.URL, time.Second).Classify(context.Background(), ensemble.Request{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("error should carry status and body: %v", err)
	}
}
