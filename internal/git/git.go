package git

import (
	"fmt"
	"os/exec"
)

// Stage runs `git add` on the given paths so an apply leaves the modified
// manifests, changelogs and removed intent files ready to commit.
func Stage(workdir string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	cmd := exec.Command("git", args...)
	cmd.Dir = workdir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git add failed: %w: %s", err, out)
	}
	return nil
}
