package dedup

import (
	"fmt"
	"testing"
)

func TestLedger_AddContains(t *testing.T) {
	l := NewLedger(10, 5)
	if l.Contains("a") {
		t.Error("empty ledger should not contain a")
	}
	l.Add("a")
	if !l.Contains("a") {
		t.Error("ledger should contain a after Add")
	}
	l.Add("a")
	if l.Len() != 1 {
		t.Errorf("Len = %d after duplicate Add, want 1", l.Len())
	}
}

func TestLedger_PruneBelowThreshold(t *testing.T) {
	l := NewLedger(10, 5)
	for i := 0; i < 10; i++ {
		l.Add(fmt.Sprintf("m%d", i))
	}
	l.Prune()
	if l.Len() != 10 {
		t.Errorf("Len = %d, prune should not fire at exactly max", l.Len())
	}
}

func TestLedger_PruneKeepsMostRecent(t *testing.T) {
	l := NewLedger(10, 5)
	for i := 0; i < 11; i++ {
		l.Add(fmt.Sprintf("m%d", i))
	}
	l.Prune()
	if l.Len() != 5 {
		t.Fatalf("Len = %d after prune, want 5", l.Len())
	}
	for i := 0; i < 6; i++ {
		if l.Contains(fmt.Sprintf("m%d", i)) {
			t.Errorf("old entry m%d survived prune", i)
		}
	}
	for i := 6; i < 11; i++ {
		if !l.Contains(fmt.Sprintf("m%d", i)) {
			t.Errorf("recent entry m%d lost in prune", i)
		}
	}
}

func TestLedger_DefaultBounds(t *testing.T) {
	// Production sizing: never above 1000, exactly the 500 newest remain.
	l := NewLedger(DefaultMax, DefaultKeep)
	for i := 0; i < 1001; i++ {
		l.Add(fmt.Sprintf("m%d", i))
	}
	l.Prune()
	if l.Len() != 500 {
		t.Fatalf("Len = %d, want 500", l.Len())
	}
	if !l.Contains("m1000") || !l.Contains("m501") {
		t.Error("newest 500 entries should remain")
	}
	if l.Contains("m500") {
		t.Error("m500 should have been pruned")
	}
}
