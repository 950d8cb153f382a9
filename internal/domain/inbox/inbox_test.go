package inbox

import (
	"testing"

	"github.com/tabflow/backend/internal/domain/workspace"
)

func tabs(urls ...string) []workspace.Tab {
	out := make([]workspace.Tab, len(urls))
	for i, u := range urls {
		out[i] = workspace.Tab{ID: u, Title: u, URL: u}
	}
	return out
}

func TestReplaceSubstitutesContents(t *testing.T) {
	box := New()

	if !box.Replace(1, tabs("a", "b")) {
		t.Fatal("first replace should apply")
	}
	if !box.Replace(2, tabs("c")) {
		t.Fatal("newer replace should apply")
	}

	got := box.List()
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("expected full replacement with [c], got %v", got)
	}
}

func TestReplaceDiscardsStaleSequence(t *testing.T) {
	box := New()
	box.Replace(2, tabs("new"))

	if box.Replace(1, tabs("old")) {
		t.Error("stale reply must be discarded")
	}

	got := box.List()
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("stale reply overwrote newer data: %v", got)
	}
}

func TestConsume(t *testing.T) {
	box := New()
	box.Replace(1, tabs("a", "b", "c"))

	if !box.Consume("b") {
		t.Fatal("consume of present id should succeed")
	}
	if box.Consume("b") {
		t.Error("consume of absent id should be a no-op")
	}

	got := box.List()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("expected [a c] in order, got %v", got)
	}
}

func TestListReturnsCopy(t *testing.T) {
	box := New()
	box.Replace(1, tabs("a"))

	got := box.List()
	got[0].Title = "mutated"

	if box.List()[0].Title != "a" {
		t.Error("List must return an isolated copy")
	}
}

func TestLen(t *testing.T) {
	box := New()
	if box.Len() != 0 {
		t.Errorf("empty inbox should have length 0, got %d", box.Len())
	}
	box.Replace(1, tabs("a", "b"))
	if box.Len() != 2 {
		t.Errorf("expected length 2, got %d", box.Len())
	}
}
