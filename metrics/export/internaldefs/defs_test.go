package internaldefs

import (
	"strings"
	"testing"
)

func TestCounterNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	ids := map[any]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %q does not follow naming convention", def.Name)
		}
		if seen[def.Name] || ids[def.ID] {
			t.Fatalf("duplicate counter %q", def.Name)
		}
		seen[def.Name] = true
		ids[def.ID] = true
	}
	if seen[AuditDroppedName] {
		t.Fatalf("%s collides with a manager counter", AuditDroppedName)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets([]uint64{1, 2, 0, 3})

	wantBounds := []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}
	wantCounts := []uint64{1, 3, 3, 6, 6, 6, 6, 6}
	if len(got) != len(wantBounds) {
		t.Fatalf("expected %d buckets, got %d", len(wantBounds), len(got))
	}
	for i, b := range got {
		if b.UpperBound != wantBounds[i] || b.Count != wantCounts[i] {
			t.Fatalf("bucket %d = %+v, want le=%s count=%d", i, b, wantBounds[i], wantCounts[i])
		}
	}
}

func TestStatusesCoverLifecycle(t *testing.T) {
	names := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		names = append(names, s.String())
	}
	if got := strings.Join(names, ","); got != "initializing,unauthenticated,authenticated" {
		t.Fatalf("unexpected status labels %s", got)
	}
}
