package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("convert", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.AddDocuments(DocumentConverted, 2)
	pr.AddDocuments(DocumentSkipped, 0)
	pr.IncRunOutcome("published")
	pr.IncPublishResult(true)
	pr.SetLastRun(time.Unix(1700000000, 0))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatalf("expected metrics, got none")
	}
}

func TestPrometheusRecorderWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.AddDocuments(DocumentConverted, 3)
	pr.IncRunOutcome("up_to_date")

	path := filepath.Join(t.TempDir(), "textfile", "mdpages.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`mdpages_documents_total{result="converted"} 3`,
		`mdpages_run_outcomes_total{outcome="up_to_date"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestRecordersTolerateNil(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRunOutcome("x")
	pr.AddDocuments(DocumentFailed, 1)
	if err := pr.WriteTextfile("ignored"); err != nil {
		t.Fatalf("nil recorder write: %v", err)
	}

	var r Recorder = NoopRecorder{}
	r.ObserveRunDuration(time.Second)
}
