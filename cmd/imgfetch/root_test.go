package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nnot really a png but close enough")

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the CLI with args in an isolated home directory
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color", "--log-level", "disabled"))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootWithoutInput(t *testing.T) {
	out, err := execute(t, "\n", "--output", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "Welcome to the Ubuntu Image Fetcher")
	assert.Contains(t, out, "No URL provided. Exiting respectfully.")
	assert.NotContains(t, out, "Please enter one or more image URLs:")
}

func TestRootReadsURLsFromStdin(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()

	out, err := execute(t, srv.URL+"/photo.png\n", "--output", dir, "--rate-limit", "0", "--no-probe")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Successfully fetched: photo.png")
	assert.Contains(t, out, "Connection strengthened. Community enriched.")
	assert.FileExists(t, filepath.Join(dir, "photo.png"))
}

func TestFetchCommand(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()

	out, err := execute(t, "", "fetch", "--output", dir, "--rate-limit", "0", "--no-probe",
		srv.URL+"/a.png,"+srv.URL+"/b.png")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Successfully fetched: a.png")
	assert.Contains(t, out, "• Duplicate skipped (already have a.png)")
	assert.Contains(t, out, "Fetched 1 new, 1 duplicate, 0 skipped, 0 failed")
	assert.NoFileExists(t, filepath.Join(dir, "b.png"))
}

func TestFetchRequiresURL(t *testing.T) {
	_, err := execute(t, "", "fetch")
	assert.Error(t, err)
}

func TestManifestVerify(t *testing.T) {
	srv := newImageServer(t)
	dir := t.TempDir()

	_, err := execute(t, "", "fetch", "-o", dir, "--rate-limit", "0", "--no-probe", srv.URL+"/a.png")
	require.NoError(t, err)

	out, err := execute(t, "", "manifest", "verify", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Manifest OK: 1 image(s)")

	out, err = execute(t, "", "manifest", "show", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "a.png")

	require.NoError(t, os.Remove(filepath.Join(dir, "a.png")))

	out, err = execute(t, "", "manifest", "verify", "-o", dir)
	assert.ErrorIs(t, err, errSilent)
	assert.Contains(t, out, "Missing file: a.png")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgfetch.toml")

	out, err := execute(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created config file")
	assert.FileExists(t, path)

	_, err = execute(t, "", "config", "init", path)
	assert.Error(t, err, "existing file should not be overwritten without --force")

	out, err = execute(t, "", "config", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
}

func TestConfigShowAppliesFlags(t *testing.T) {
	out, err := execute(t, "", "config", "show", "--output", "elsewhere", "--max-attempts", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "output_dir: elsewhere")
	assert.Contains(t, out, "max_attempts: 3")
}

func TestVerboseSelectsDebugLevel(t *testing.T) {
	out, err := execute(t, "", "config", "show", "-v")
	require.NoError(t, err)

	assert.Contains(t, out, "level: debug")
	assert.Contains(t, out, "requests_per_minute: 60")
}
