//go:build e2e

package e2e

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envCredentials names a paired credential file. The tests copy it into
// each working directory; rotated refresh tokens are never written back.
const envCredentials = "DBX_XFR_E2E_CREDENTIALS"

var (
	binaryPath  string
	credentials []byte
)

func TestMain(m *testing.M) {
	os.Exit(runMain(m))
}

func runMain(m *testing.M) int {
	credPath := os.Getenv(envCredentials)
	if credPath == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s must point at a paired dbx-xfr.cfg (run 'dbx-xfr pair' first)\n", envCredentials)
		return 1
	}

	var err error

	credentials, err = os.ReadFile(credPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: reading %s: %v\n", credPath, err)
		return 1
	}

	tmpDir, err := os.MkdirTemp("", "dbx-xfr-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "dbx-xfr")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		return 1
	}

	return m.Run()
}

// findModuleRoot walks up from the current dir to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ".."
		}

		dir = parent
	}
}

// workDir returns a fresh working directory holding the test credentials.
func workDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dbx-xfr.cfg"), credentials, 0o600))

	return dir
}

// runCLI runs the binary in dir and returns stdout, stderr and exit code.
func runCLI(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(nil)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("running %v: %v", args, err)
	}

	return stdout.String(), stderr.String(), code
}

func TestE2E_Status(t *testing.T) {
	stdout, stderr, code := runCLI(t, workDir(t), "status")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "connected.")
}

func TestE2E_RoundTrip(t *testing.T) {
	folder := fmt.Sprintf("/dbx-xfr-e2e-%d", time.Now().UnixNano())
	content := []byte("Hello from dbx-xfr E2E test!\n")

	src := workDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, "test.txt"), content, 0o644))

	stdout, stderr, code := runCLI(t, src, "--folder", folder, "put", "test.txt")
	require.Equal(t, 0, code, "stdout: %s\nstderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "Upload complete.")

	dst := workDir(t)

	stdout, stderr, code = runCLI(t, dst, "--folder", folder, "get", "test.txt")
	require.Equal(t, 0, code, "stdout: %s\nstderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "Download complete.")

	got, err := os.ReadFile(filepath.Join(dst, "test.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestE2E_UnicodeFilename(t *testing.T) {
	folder := fmt.Sprintf("/dbx-xfr-e2e-unicode-%d", time.Now().UnixNano())
	name := "café résumé.txt"

	src := workDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte("accents"), 0o644))

	_, stderr, code := runCLI(t, src, "--folder", folder, "put", name)
	require.Equal(t, 0, code, "stderr: %s", stderr)

	dst := workDir(t)
	_, stderr, code = runCLI(t, dst, "--folder", folder, "get", name)
	require.Equal(t, 0, code, "stderr: %s", stderr)

	got, err := os.ReadFile(filepath.Join(dst, name))
	require.NoError(t, err)
	assert.Equal(t, "accents", string(got))
}

func TestE2E_GetNotFound(t *testing.T) {
	folder := fmt.Sprintf("/dbx-xfr-e2e-missing-%d", time.Now().UnixNano())

	stdout, _, code := runCLI(t, workDir(t), "--folder", folder, "get", "nope.txt")
	assert.Equal(t, 3, code)
	assert.Contains(t, stdout, folder+"/nope.txt not found on dropbox")
}
