package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestProject builds a small project tree and returns its root.
func newTestProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeTestFile(t, filepath.Join(root, "main.go"), "package main\n")
	writeTestFile(t, filepath.Join(root, "internal", "util.go"), "package internal\n")
	writeTestFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "module.exports = {}\n")
	writeTestFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/main\n")

	return root
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(Options{
		AutoCleanup: true,
		TempDir:     t.TempDir(),
	})
}

func TestStartClonesProject(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)

	session, err := mgr.Start(root)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer mgr.Discard()

	if session.State != SessionActive {
		t.Errorf("expected active state, got %s", session.State)
	}
	if session.Type != TypeDirectory {
		t.Errorf("expected directory type, got %s", session.Type)
	}
	if session.ID == "" {
		t.Error("expected non-empty session id")
	}

	if _, err := os.Stat(filepath.Join(session.SandboxRoot, "main.go")); err != nil {
		t.Error("main.go should be cloned")
	}
	if _, err := os.Stat(filepath.Join(session.SandboxRoot, "internal", "util.go")); err != nil {
		t.Error("nested files should be cloned")
	}
	if _, err := os.Stat(filepath.Join(session.SandboxRoot, "node_modules")); !os.IsNotExist(err) {
		t.Error("node_modules should be excluded")
	}
	if _, err := os.Stat(filepath.Join(session.SandboxRoot, ".git")); !os.IsNotExist(err) {
		t.Error(".git should be excluded")
	}
}

func TestStartWhileActiveFails(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)

	if _, err := mgr.Start(root); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := mgr.Start(root); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}

	if err := mgr.Discard(); err != nil {
		t.Fatalf("discard failed: %v", err)
	}
	if _, err := mgr.Start(root); err != nil {
		t.Fatalf("start after discard failed: %v", err)
	}
	if _, err := mgr.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, err := mgr.Start(root); err != nil {
		t.Fatalf("start after commit failed: %v", err)
	}
}

func TestPathTranslationRoundTrip(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Discard()

	paths := []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "internal", "util.go"),
		filepath.Join(root, "deeply", "nested", "new", "file.txt"),
	}
	for _, p := range paths {
		sandboxPath := mgr.TranslatePath(p)
		if sandboxPath == p {
			t.Errorf("path %s inside the project must be translated", p)
		}
		if got := mgr.TranslateToReal(sandboxPath); got != p {
			t.Errorf("round trip broken: %s -> %s -> %s", p, sandboxPath, got)
		}
	}

	t.Run("outside paths pass through", func(t *testing.T) {
		outside := "/etc/hosts"
		if got := mgr.TranslatePath(outside); got != outside {
			t.Errorf("expected passthrough for %s, got %s", outside, got)
		}
		if got := mgr.TranslateToReal(outside); got != outside {
			t.Errorf("expected passthrough for %s, got %s", outside, got)
		}
	})

	t.Run("project root maps to sandbox root", func(t *testing.T) {
		if got := mgr.TranslatePath(root); got != session.SandboxRoot {
			t.Errorf("expected %s, got %s", session.SandboxRoot, got)
		}
	})
}

func TestTrackChangeLastWriteWins(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Discard()

	path := filepath.Join(session.SandboxRoot, "main.go")
	mgr.TrackChange(path, ChangeCreated)
	mgr.TrackChange(path, ChangeModified)
	mgr.TrackChange(filepath.Join(session.SandboxRoot, "other.go"), ChangeCreated)

	changes := mgr.ActiveSession().Changes
	if len(changes) != 2 {
		t.Fatalf("expected 2 change records, got %d", len(changes))
	}
	if changes[0].ChangeType != ChangeModified {
		t.Errorf("later change must overwrite the earlier record, got %s", changes[0].ChangeType)
	}
	if changes[0].OriginalPath != filepath.Join(root, "main.go") {
		t.Errorf("original path not resolved: %s", changes[0].OriginalPath)
	}
}

func TestTrackChangeNoSessionIsNoop(t *testing.T) {
	mgr := newTestManager(t)
	mgr.TrackChange("/tmp/whatever", ChangeCreated) // must not panic
	if mgr.ActiveSession() != nil {
		t.Error("no session should exist")
	}
}

func TestCommitRepaysChanges(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}

	// created
	created := filepath.Join(session.SandboxRoot, "pkg", "new.go")
	writeTestFile(t, created, "package pkg\n")
	mgr.TrackChange(created, ChangeCreated)

	// modified
	modified := filepath.Join(session.SandboxRoot, "main.go")
	writeTestFile(t, modified, "package main // changed\n")
	mgr.TrackChange(modified, ChangeModified)

	// deleted
	deleted := filepath.Join(session.SandboxRoot, "internal", "util.go")
	if err := os.Remove(deleted); err != nil {
		t.Fatal(err)
	}
	mgr.TrackChange(deleted, ChangeDeleted)

	result, err := mgr.Commit()
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, failed: %v", result.Failed)
	}
	if len(result.Committed) != 3 {
		t.Errorf("expected 3 committed, got %v", result.Committed)
	}

	data, err := os.ReadFile(filepath.Join(root, "pkg", "new.go"))
	if err != nil || string(data) != "package pkg\n" {
		t.Errorf("created file not replayed: %v %q", err, data)
	}
	data, _ = os.ReadFile(filepath.Join(root, "main.go"))
	if string(data) != "package main // changed\n" {
		t.Errorf("modified file not replayed: %q", data)
	}
	if _, err := os.Stat(filepath.Join(root, "internal", "util.go")); !os.IsNotExist(err) {
		t.Error("deleted file should be removed from the real tree")
	}

	// auto-cleanup removed the clone and cleared the session
	if _, err := os.Stat(session.SandboxRoot); !os.IsNotExist(err) {
		t.Error("sandbox directory should be removed after commit")
	}
	if mgr.ActiveSession() != nil {
		t.Error("session reference should be cleared after commit")
	}
}

func TestCommitIsolatesFailures(t *testing.T) {
	root := newTestProject(t)
	// A regular file that will block MkdirAll for one change's parent.
	writeTestFile(t, filepath.Join(root, "blocker"), "not a directory\n")

	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}

	okCreate := filepath.Join(session.SandboxRoot, "a.txt")
	writeTestFile(t, okCreate, "A\n")
	mgr.TrackChange(okCreate, ChangeCreated)

	// The real parent "blocker" is a file, so replay must fail for this one.
	failing := filepath.Join(session.SandboxRoot, "blocker", "b.txt")
	writeTestFile(t, failing, "B\n")
	mgr.TrackChange(failing, ChangeModified)

	okDelete := filepath.Join(session.SandboxRoot, "main.go")
	mgr.TrackChange(okDelete, ChangeDeleted)

	result, err := mgr.Commit()
	if err != nil {
		t.Fatalf("commit itself must not fail: %v", err)
	}
	if result.Success {
		t.Error("expected success=false with a failed change")
	}
	if len(result.Committed) != 2 {
		t.Errorf("expected A and the delete committed, got %v", result.Committed)
	}
	if len(result.Failed) != 1 || result.Failed[0] != filepath.Join(root, "blocker", "b.txt") {
		t.Errorf("expected exactly the blocked change in failed, got %v", result.Failed)
	}
}

func TestCommitSkipsIdenticalContent(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}

	// Tracked as modified but content never actually diverged.
	untouched := filepath.Join(session.SandboxRoot, "main.go")
	mgr.TrackChange(untouched, ChangeModified)

	result, err := mgr.Commit()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("expected success, got failures %v", result.Failed)
	}
	if len(result.Committed) != 0 {
		t.Errorf("identical files must not be reported committed, got %v", result.Committed)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("expected 1 skipped, got %v", result.Skipped)
	}
}

func TestCommitWithoutSessionFails(t *testing.T) {
	mgr := newTestManager(t)
	if _, err := mgr.Commit(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
	if err := mgr.Discard(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestDiscardDropsChanges(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}

	modified := filepath.Join(session.SandboxRoot, "main.go")
	writeTestFile(t, modified, "package main // sandbox only\n")
	mgr.TrackChange(modified, ChangeModified)

	if err := mgr.Discard(); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "main.go"))
	if string(data) != "package main\n" {
		t.Errorf("real tree must be untouched after discard, got %q", data)
	}
	if _, err := os.Stat(session.SandboxRoot); !os.IsNotExist(err) {
		t.Error("sandbox directory should be removed after discard")
	}
}

func TestGetFileDiff(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Discard()

	t.Run("modified file has both sides", func(t *testing.T) {
		path := filepath.Join(session.SandboxRoot, "main.go")
		writeTestFile(t, path, "package main // v2\n")

		contents, err := mgr.GetFileDiff(path)
		if err != nil {
			t.Fatal(err)
		}
		if contents.Original == nil || *contents.Original != "package main\n" {
			t.Errorf("unexpected original side: %v", contents.Original)
		}
		if contents.Modified == nil || *contents.Modified != "package main // v2\n" {
			t.Errorf("unexpected modified side: %v", contents.Modified)
		}
	})

	t.Run("created file has nil original", func(t *testing.T) {
		path := filepath.Join(session.SandboxRoot, "brand_new.go")
		writeTestFile(t, path, "package brandnew\n")

		contents, err := mgr.GetFileDiff(path)
		if err != nil {
			t.Fatal(err)
		}
		if contents.Original != nil {
			t.Error("created file must have nil original")
		}
		if contents.Modified == nil {
			t.Error("created file must have a modified side")
		}
	})

	t.Run("deleted file has nil modified", func(t *testing.T) {
		path := filepath.Join(session.SandboxRoot, "internal", "util.go")
		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		contents, err := mgr.GetFileDiff(path)
		if err != nil {
			t.Fatal(err)
		}
		if contents.Original == nil {
			t.Error("deleted file must keep its original side")
		}
		if contents.Modified != nil {
			t.Error("deleted file must have nil modified")
		}
	})
}

func TestReviewChanges(t *testing.T) {
	root := newTestProject(t)
	mgr := newTestManager(t)
	session, err := mgr.Start(root)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Discard()

	modified := filepath.Join(session.SandboxRoot, "main.go")
	writeTestFile(t, modified, "package main\n\nfunc main() {}\n")
	mgr.TrackChange(modified, ChangeModified)

	review, err := mgr.ReviewChanges()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-package main", "+func main() {}", "@@"} {
		if !strings.Contains(review, want) {
			t.Errorf("review output missing %q:\n%s", want, review)
		}
	}
}
