package internaldefs

import (
	"strings"
	"testing"
)

func TestCumulative(t *testing.T) {
	got := Cumulative([]uint64{1, 2, 3})
	want := [BucketCount]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("Cumulative = %v, want %v", got, want)
	}
	if Cumulative(nil) != ([BucketCount]uint64{}) {
		t.Fatal("expected zero buckets for nil input")
	}
}

func TestDefinitionsAreUnique(t *testing.T) {
	seen := map[string]bool{AuditDroppedName: true}
	for _, d := range CounterDefs {
		if !strings.HasSuffix(d.Name, "_total") {
			t.Fatalf("counter %s lacks _total suffix", d.Name)
		}
		if seen[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		seen[d.Name] = true
	}
	for _, d := range HistogramDefs {
		if seen[d.Name] {
			t.Fatalf("duplicate metric name %s", d.Name)
		}
		seen[d.Name] = true
	}
}
