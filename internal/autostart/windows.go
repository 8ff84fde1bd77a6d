package autostart

import (
	"fmt"
)

const taskName = "gdsync"

type WindowsAutoStarter struct {
	run runner
}

func (w *WindowsAutoStarter) Install(execPath, dir string) error {
	if err := w.run("schtasks", "/Create",
		"/TN", taskName,
		"/TR", fmt.Sprintf(`"%s" watch "%s"`, execPath, dir),
		"/SC", "ONLOGON",
		"/F"); err != nil {
		return fmt.Errorf("failed to register task: %w", err)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	if err := w.run("schtasks", "/Delete", "/TN", taskName, "/F"); err != nil {
		return fmt.Errorf("failed to remove task: %w", err)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	return w.run("schtasks", "/Query", "/TN", taskName) == nil, nil
}
