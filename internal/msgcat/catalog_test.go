package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedDefaults(t *testing.T) {
	c := MustDefault()
	got, err := c.Render("notify.joined", map[string]string{"User": "bob", "Role": "observer"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "bob has joined the game as observer" {
		t.Fatalf("unexpected text %q", got)
	}
	got, err = c.Render("notify.resigned", map[string]string{"User": "alice", "Winner": "BLACK"})
	if err != nil || got != "alice has resigned. Team BLACK wins!" {
		t.Fatalf("resigned = %q, %v", got, err)
	}
}

func TestRenderMissing(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("notify.nope", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
	if _, err := c.Render("notify.joined", map[string]string{"User": "x"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if got := c.Text("notify.nope", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback = %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("notify.joined", nil, "fb"); got != "fb" {
		t.Fatalf("nil catalog should fall back, got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("notify:\n  left: \"{{.User}} walked away\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("notify.left", map[string]string{"User": "bob"}, ""); got != "bob walked away" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("notify.stalemate", map[string]string{"User": "a", "SAN": "Qb6"}, ""); !strings.Contains(got, "Stalemate!") {
		t.Fatalf("defaults lost after override: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("notify:\n  left: dup\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("notify:\n  left: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for non-string leaf")
	}
}
