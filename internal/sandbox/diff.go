package sandbox

import (
	"bytes"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// ReviewChanges renders every tracked change as a unified diff for the
// pre-commit review step. Deleted files show their removed content; created
// files show their full content as additions.
func (m *Manager) ReviewChanges() (string, error) {
	m.mu.Lock()
	if m.session == nil || m.session.State != SessionActive {
		m.mu.Unlock()
		return "", ErrNoActiveSession
	}
	changes := make([]FileChange, len(m.session.Changes))
	copy(changes, m.session.Changes)
	m.mu.Unlock()

	var buf bytes.Buffer
	for _, change := range changes {
		contents, err := m.GetFileDiff(change.SandboxPath)
		if err != nil {
			return "", err
		}
		rendered, err := renderFileDiff(change, contents)
		if err != nil {
			return "", fmt.Errorf("failed to render diff for %s: %w", change.OriginalPath, err)
		}
		buf.Write(rendered)
	}
	return buf.String(), nil
}

// renderFileDiff builds a unified diff for a single change. The hunk replaces
// the whole file; review output favors completeness over minimality.
func renderFileDiff(change FileChange, contents *FileContents) ([]byte, error) {
	origName := "a/" + change.OriginalPath
	newName := "b/" + change.OriginalPath

	var origLines, newLines []string
	if contents.Original != nil {
		origLines = splitDiffLines(*contents.Original)
	} else {
		origName = "/dev/null"
	}
	if contents.Modified != nil && change.ChangeType != ChangeDeleted {
		newLines = splitDiffLines(*contents.Modified)
	} else {
		newName = "/dev/null"
	}

	var body bytes.Buffer
	for _, line := range origLines {
		body.WriteString("-" + line + "\n")
	}
	for _, line := range newLines {
		body.WriteString("+" + line + "\n")
	}
	if body.Len() == 0 {
		return nil, nil
	}

	origStart := int32(0)
	if len(origLines) > 0 {
		origStart = 1
	}
	newStart := int32(0)
	if len(newLines) > 0 {
		newStart = 1
	}

	fileDiff := &godiff.FileDiff{
		OrigName: origName,
		NewName:  newName,
		Hunks: []*godiff.Hunk{{
			OrigStartLine: origStart,
			OrigLines:     int32(len(origLines)),
			NewStartLine:  newStart,
			NewLines:      int32(len(newLines)),
			Body:          body.Bytes(),
		}},
	}
	return godiff.PrintFileDiff(fileDiff)
}

func splitDiffLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}
