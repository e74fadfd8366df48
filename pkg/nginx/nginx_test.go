// pkg/nginx/nginx_test.go

package nginx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "roster")
	link := filepath.Join(dir, "enabled")
	require.NoError(t, os.WriteFile(target, []byte("server {}"), 0644))

	require.NoError(t, ensureSymlink(target, link))
	got, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	// Repeat run leaves the link untouched.
	require.NoError(t, ensureSymlink(target, link))

	// A link pointing elsewhere gets replaced.
	other := filepath.Join(dir, "other")
	require.NoError(t, os.WriteFile(other, []byte("server {}"), 0644))
	require.NoError(t, os.Remove(link))
	require.NoError(t, os.Symlink(other, link))
	require.NoError(t, ensureSymlink(target, link))
	got, err = os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestRestoreWithPrevious(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	site := Site{
		AvailablePath: filepath.Join(dir, "roster"),
		EnabledPath:   filepath.Join(dir, "enabled"),
	}
	require.NoError(t, os.WriteFile(site.AvailablePath, []byte("broken"), 0644))
	require.NoError(t, os.Symlink(site.AvailablePath, site.EnabledPath))

	backup := siteBackup{
		content:    []byte("good"),
		hadContent: true,
		linkTarget: site.AvailablePath,
		hadLink:    true,
	}
	require.NoError(t, backup.restore(site))

	content, err := os.ReadFile(site.AvailablePath)
	require.NoError(t, err)
	assert.Equal(t, "good", string(content))
	assert.True(t, SiteEnabled(site.EnabledPath))
}

func TestRestoreWithoutPreviousWithdrawsSite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	site := Site{
		AvailablePath: filepath.Join(dir, "roster"),
		EnabledPath:   filepath.Join(dir, "enabled"),
	}
	require.NoError(t, os.WriteFile(site.AvailablePath, []byte("broken"), 0644))
	require.NoError(t, os.Symlink(site.AvailablePath, site.EnabledPath))

	require.NoError(t, siteBackup{}.restore(site))

	_, err := os.Lstat(site.EnabledPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(site.AvailablePath)
	assert.True(t, os.IsNotExist(err))
}

func TestSiteEnabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	link := filepath.Join(dir, "enabled")
	assert.False(t, SiteEnabled(link))

	require.NoError(t, os.Symlink(filepath.Join(dir, "missing-target"), link))
	// A dangling symlink still counts as "enabled"; nginx -t will catch it.
	assert.True(t, SiteEnabled(link))
}

// failingActivate runs Activate with validation guaranteed to fail by
// emptying PATH so the nginx binary cannot be found.
func failingActivate(t *testing.T, site Site) error {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
	err := Activate(context.Background(), site)
	require.Error(t, err)
	return err
}

func TestActivateFailurePreservesDefaultSite(t *testing.T) {
	dir := t.TempDir()
	defaultConf := filepath.Join(dir, "default.conf")
	require.NoError(t, os.WriteFile(defaultConf, []byte("server { listen 80 default_server; }"), 0644))
	defaultLink := filepath.Join(dir, "default")
	require.NoError(t, os.Symlink(defaultConf, defaultLink))

	site := Site{
		AvailablePath: filepath.Join(dir, "roster"),
		EnabledPath:   filepath.Join(dir, "roster-enabled"),
		DefaultSite:   defaultLink,
		Content:       []byte("server { nonsense }"),
	}
	failingActivate(t, site)

	// The previously active default site must survive a validation
	// failure untouched.
	target, err := os.Readlink(defaultLink)
	require.NoError(t, err)
	assert.Equal(t, defaultConf, target)

	// The broken site was withdrawn entirely.
	_, err = os.Stat(site.AvailablePath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Lstat(site.EnabledPath)
	assert.True(t, os.IsNotExist(err))
}

func TestActivateFailureRestoresPreviousConfig(t *testing.T) {
	dir := t.TempDir()
	site := Site{
		AvailablePath: filepath.Join(dir, "roster"),
		EnabledPath:   filepath.Join(dir, "roster-enabled"),
		Content:       []byte("server { nonsense }"),
	}
	require.NoError(t, os.WriteFile(site.AvailablePath, []byte("server { listen 80; }"), 0644))
	require.NoError(t, os.Symlink(site.AvailablePath, site.EnabledPath))

	failingActivate(t, site)

	content, err := os.ReadFile(site.AvailablePath)
	require.NoError(t, err)
	assert.Equal(t, "server { listen 80; }", string(content))
	assert.True(t, SiteEnabled(site.EnabledPath))
}

func TestActivateFailureKeepsDisabledSiteDisabled(t *testing.T) {
	dir := t.TempDir()
	site := Site{
		AvailablePath: filepath.Join(dir, "roster"),
		EnabledPath:   filepath.Join(dir, "roster-enabled"),
		Content:       []byte("server { nonsense }"),
	}
	// A prior config exists but the operator had it disabled: no
	// activation symlink.
	require.NoError(t, os.WriteFile(site.AvailablePath, []byte("server { listen 80; }"), 0644))

	failingActivate(t, site)

	content, err := os.ReadFile(site.AvailablePath)
	require.NoError(t, err)
	assert.Equal(t, "server { listen 80; }", string(content))
	_, err = os.Lstat(site.EnabledPath)
	assert.True(t, os.IsNotExist(err), "a failed activation must not enable a previously disabled site")
}
