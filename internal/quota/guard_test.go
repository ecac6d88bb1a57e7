package quota

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestCheckAndReserve_Accumulates(t *testing.T) {
	g := openTestGuard(t)

	sends := []int{100, 250, 1}
	total := 0
	for _, n := range sends {
		if err := g.CheckAndReserve(n); err != nil {
			t.Fatalf("CheckAndReserve(%d): %v", n, err)
		}
		total += n
	}

	used, err := g.Used()
	if err != nil {
		t.Fatal(err)
	}
	if used != total {
		t.Errorf("Used() = %d, want %d", used, total)
	}
}

func TestCheckAndReserve_RejectsOverLimit(t *testing.T) {
	g := openTestGuard(t)

	if err := g.CheckAndReserve(49999); err != nil {
		t.Fatal(err)
	}

	// One more character fits exactly, two do not.
	if err := g.CheckAndReserve(2); !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected ErrExceeded, got %v", err)
	}

	used, _ := g.Used()
	if used != 49999 {
		t.Errorf("rejected reservation changed count: %d", used)
	}

	if err := g.CheckAndReserve(1); err != nil {
		t.Fatalf("exact fit rejected: %v", err)
	}
	used, _ = g.Used()
	if used != DailyLimit {
		t.Errorf("Used() = %d, want %d", used, DailyLimit)
	}
}

func TestCheckAndReserve_ZeroAndNegative(t *testing.T) {
	g := openTestGuard(t)

	if err := g.CheckAndReserve(0); err != nil {
		t.Errorf("zero reservation failed: %v", err)
	}
	if err := g.CheckAndReserve(-1); err == nil {
		t.Error("negative reservation accepted")
	}
}

func TestDayRollover(t *testing.T) {
	g := openTestGuard(t)

	yesterday := time.Now().Add(-24 * time.Hour)
	g.now = func() time.Time { return yesterday }

	if err := g.CheckAndReserve(40000); err != nil {
		t.Fatal(err)
	}

	// Back to the real clock: yesterday's record reads as zero.
	g.now = time.Now

	used, err := g.Used()
	if err != nil {
		t.Fatal(err)
	}
	if used != 0 {
		t.Errorf("stale record not treated as zero, Used() = %d", used)
	}

	if err := g.CheckAndReserve(45000); err != nil {
		t.Errorf("reservation after rollover rejected: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quota.db")

	g, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.CheckAndReserve(1234); err != nil {
		t.Fatal(err)
	}
	g.Close()

	g2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer g2.Close()

	used, err := g2.Used()
	if err != nil {
		t.Fatal(err)
	}
	if used != 1234 {
		t.Errorf("Used() after reopen = %d, want 1234", used)
	}
}
