package plan

import (
	"errors"
	"testing"
)

func TestLookupKnownPlans(t *testing.T) {
	cases := []struct {
		id      string
		name    string
		price   int64
		granted int
	}{
		{"basic", "Paket Basic", 50000, 30},
		{"pro", "Paket Pro", 100000, 100},
		{"sultan", "Paket Sultan", 500000, 1000},
	}
	for _, tc := range cases {
		p, errLookup := Lookup(tc.id)
		if errLookup != nil {
			t.Fatalf("Lookup(%s): %v", tc.id, errLookup)
		}
		if p.Name != tc.name || p.Price != tc.price || p.QuotaGranted != tc.granted {
			t.Fatalf("Lookup(%s) = %+v", tc.id, p)
		}
	}
}

func TestLookupUnknownPlan(t *testing.T) {
	if _, errLookup := Lookup("platinum"); !errors.Is(errLookup, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", errLookup)
	}
}

func TestAllReturnsStableOrder(t *testing.T) {
	plans := All()
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}
	if plans[0].ID != "basic" || plans[1].ID != "pro" || plans[2].ID != "sultan" {
		t.Fatalf("unexpected order %v", plans)
	}
}
