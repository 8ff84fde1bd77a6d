package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

const (
	unitName        = "gdsync.service"
	serviceTemplate = `[Unit]
Description=gdsync mirror of {{.Dir}}
After=network-online.target

[Service]
ExecStart="{{.ExecPath}}" watch "{{.Dir}}"
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`
)

var unitTmpl = template.Must(template.New("service").Parse(serviceTemplate))

// LinuxAutoStarter installs a systemd user unit. UnitDir defaults to
// ~/.config/systemd/user.
type LinuxAutoStarter struct {
	UnitDir string
	run     runner
}

func (l *LinuxAutoStarter) servicePath() (string, error) {
	dir := l.UnitDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, unitName), nil
}

func (l *LinuxAutoStarter) Install(execPath, dir string) error {
	path, err := l.servicePath()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := unitTmpl.Execute(f, map[string]string{"ExecPath": execPath, "Dir": dir}); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", unitName},
		{"systemctl", "--user", "restart", unitName},
	}

	for _, args := range cmds {
		if err := l.run(args[0], args[1:]...); err != nil {
			return err
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	_ = l.run("systemctl", "--user", "stop", unitName)
	_ = l.run("systemctl", "--user", "disable", unitName)

	path, err := l.servicePath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return l.run("systemctl", "--user", "daemon-reload")
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.servicePath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
