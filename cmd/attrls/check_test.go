package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCommandReportsNoErrorsOnCleanWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.attrl"), []byte("{ x = 1 }"), 0o644))

	cmd := rootCmd
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", dir})
	err := cmd.Execute()
	assert.NoError(t, err)
}

func TestCheckCommandRejectsMissingDirectory(t *testing.T) {
	cmd := rootCmd
	cmd.SetArgs([]string{"check", filepath.Join(t.TempDir(), "does-not-exist")})
	err := cmd.Execute()
	assert.Error(t, err)
}
