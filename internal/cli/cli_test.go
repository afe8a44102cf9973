package cli

import (
	"context"
	"errors"
	"testing"
)

func TestRunChecks_ContinuesAfterFailure(t *testing.T) {
	var ran []string
	checks := []check{
		{"first", func(context.Context) error { ran = append(ran, "first"); return errors.New("boom") }},
		{"second", func(context.Context) error { ran = append(ran, "second"); return nil }},
	}

	results := runChecks(context.Background(), checks)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Errorf("expected sequential run, got %v", ran)
	}
	if results[0].err == nil || results[1].err != nil {
		t.Errorf("unexpected results %+v", results)
	}
	if failed := renderResults(results); failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
}

func TestBuildChecks_LocalChecksPass(t *testing.T) {
	for _, c := range buildChecks(nil)[:3] {
		if err := c.fn(context.Background()); err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
	}
}
