package sandbox

import (
	"strings"
	"testing"
)

func TestDryRunWriteReadCycle(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")

	d.WriteFile("/project/a.txt", "first")
	content, ok := d.ReadFile("/project/a.txt")
	if !ok || content != "first" {
		t.Errorf("expected tracked content, got %q ok=%v", content, ok)
	}

	d.WriteFile("/project/a.txt", "second")
	content, ok = d.ReadFile("/project/a.txt")
	if !ok || content != "second" {
		t.Errorf("expected latest content, got %q ok=%v", content, ok)
	}

	changes := d.GetChanges()
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].ChangeType != ChangeModified {
		t.Errorf("second write must flip type to modified, got %s", changes[0].ChangeType)
	}
}

func TestDryRunFirstWriteIsCreated(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")

	d.WriteFile("/project/new.txt", "hello")
	changes := d.GetChanges()
	if len(changes) != 1 || changes[0].ChangeType != ChangeCreated {
		t.Errorf("first write must be created, got %+v", changes)
	}
}

func TestDryRunDelete(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")

	d.WriteFile("/project/doomed.txt", "content")
	d.DeleteFile("/project/doomed.txt")

	if _, ok := d.ReadFile("/project/doomed.txt"); ok {
		t.Error("deleted path must read as absent")
	}

	changes := d.GetChanges()
	if len(changes) != 1 || changes[0].ChangeType != ChangeDeleted {
		t.Errorf("expected deleted entry, got %+v", changes)
	}
	if changes[0].Preview != "" {
		t.Errorf("deleted entry must have empty content, got %q", changes[0].Preview)
	}
}

func TestDryRunUntrackedReadsAbsent(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")

	// Callers fall back to the real filesystem for untracked paths.
	if _, ok := d.ReadFile("/project/never_touched.txt"); ok {
		t.Error("untracked path must read as absent")
	}
}

func TestDryRunPreviewTruncation(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")

	long := strings.Repeat("x", 150)
	d.WriteFile("/project/big.txt", long)

	changes := d.GetChanges()
	if len(changes) != 1 {
		t.Fatal("expected 1 change")
	}
	want := strings.Repeat("x", 100) + "..."
	if changes[0].Preview != want {
		t.Errorf("expected 100-char preview with ellipsis, got %d chars", len(changes[0].Preview))
	}

	// Full content is preserved for reads.
	content, ok := d.ReadFile("/project/big.txt")
	if !ok || content != long {
		t.Error("ReadFile must return untruncated content")
	}
}

func TestDryRunEndClearsState(t *testing.T) {
	d := NewDryRunSandbox()
	d.Start("/project")
	d.WriteFile("/project/a.txt", "data")

	d.End()
	if d.IsActive() {
		t.Error("expected inactive after end")
	}
	if len(d.GetChanges()) != 0 {
		t.Error("expected no changes after end")
	}

	// Restart clears previous tracking too.
	d.Start("/project")
	if len(d.GetChanges()) != 0 {
		t.Error("expected a fresh start")
	}
}

func TestDryRunInactiveWritesIgnored(t *testing.T) {
	d := NewDryRunSandbox()
	d.WriteFile("/project/a.txt", "data")
	d.DeleteFile("/project/b.txt")
	if len(d.GetChanges()) != 0 {
		t.Error("writes before start must be ignored")
	}
}
