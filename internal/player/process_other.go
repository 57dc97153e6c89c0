//go:build !unix

package player

import (
	"errors"
	"os"
	"os/exec"
)

func configureProcess(*exec.Cmd) {}

func terminate(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
