package sync

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultCommitMessage = "sync: update chunks export"

// GitDestination commits each export to a file in a local clone and
// pushes the branch.
type GitDestination struct {
	repo   string // local clone
	file   string // path relative to repo
	branch string
}

// NewGitDestination targets file on branch inside the existing clone at repo.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string { return "git:" + filepath.Join(d.repo, d.file) }

// Write replaces the export file, then commits and pushes when the staged
// tree differs from HEAD.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}
	// The remote branch may not exist yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	if err := d.writeFile(data); err != nil {
		return err
	}
	if err := d.git(ctx, "add", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	// diff --quiet exits 0 when nothing is staged.
	if d.git(ctx, "diff", "--cached", "--quiet") == nil {
		return nil
	}

	steps := [][]string{
		{"commit", "-m", commitMessage(data)},
		{"push", "origin", d.branch},
	}
	for _, args := range steps {
		if err := d.git(ctx, args...); err != nil {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
	}
	return nil
}

func (d *GitDestination) writeFile(data []byte) error {
	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// commitMessage summarizes the export header, if there is one.
func commitMessage(data []byte) string {
	h, ok := readHeader(data)
	if !ok {
		return defaultCommitMessage
	}
	return fmt.Sprintf("%s (%d chunks, %d inline)", defaultCommitMessage, h.ChunkCount, h.InlineChunkCount)
}

// git runs a subcommand in the clone and attaches its output to any error.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(out.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
