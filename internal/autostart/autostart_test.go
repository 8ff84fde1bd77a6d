package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRuns struct {
	calls []string
}

func (r *recordedRuns) run(name string, args ...string) error {
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	return nil
}

func TestLinuxInstallWritesUnit(t *testing.T) {
	rec := &recordedRuns{}
	l := &LinuxAutoStarter{UnitDir: t.TempDir(), run: rec.run}

	require.NoError(t, l.Install("/usr/local/bin/gdsync", "/home/me/Drive"))

	unit, err := os.ReadFile(filepath.Join(l.UnitDir, unitName))
	require.NoError(t, err)
	assert.Contains(t, string(unit), "[Service]")
	assert.Contains(t, string(unit), `ExecStart="/usr/local/bin/gdsync" watch "/home/me/Drive"`)

	installed, err := l.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)

	assert.Equal(t, []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable gdsync.service",
		"systemctl --user restart gdsync.service",
	}, rec.calls)
}

func TestLinuxUninstall(t *testing.T) {
	rec := &recordedRuns{}
	l := &LinuxAutoStarter{UnitDir: t.TempDir(), run: rec.run}

	require.NoError(t, l.Install("/bin/gdsync", "/d"))
	require.NoError(t, l.Uninstall())
	require.NoError(t, l.Uninstall())

	installed, err := l.IsInstalled()
	require.NoError(t, err)
	assert.False(t, installed)
}

func TestWindowsInstallCommand(t *testing.T) {
	rec := &recordedRuns{}
	w := &WindowsAutoStarter{run: rec.run}

	require.NoError(t, w.Install(`C:\bin\gdsync.exe`, `C:\Drive`))
	require.Len(t, rec.calls, 1)
	assert.Contains(t, rec.calls[0], `/TR "C:\bin\gdsync.exe" watch "C:\Drive"`)
}
