package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"extension-mirror/internal/ports"
)

const DefaultWorkDir = "extension-mirror-work"

// WorkspaceAdapter owns the single working directory shared by every
// package in a run.
type WorkspaceAdapter struct {
	Dir string
}

func NewWorkspaceAdapter(dir string) WorkspaceAdapter {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), DefaultWorkDir)
	}
	return WorkspaceAdapter{Dir: dir}
}

// Reset wipes and recreates the working directory. Removal is best effort;
// the directory is returned even when the wipe was incomplete.
func (a WorkspaceAdapter) Reset() (string, error) {
	if strings.TrimSpace(a.Dir) == "" || a.Dir == string(filepath.Separator) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("working directory is not set")
	}
	removeErr := os.RemoveAll(a.Dir)
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return a.Dir, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create working directory").
			WithCause(err)
	}
	if removeErr != nil {
		return a.Dir, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to wipe working directory").
			WithCause(removeErr)
	}
	return a.Dir, nil
}

var _ ports.WorkspacePort = WorkspaceAdapter{}
