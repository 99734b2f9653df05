// ABOUTME: Tests for the install-skill command.
// ABOUTME: Validates skill installation, confirmation handling, and embedded content.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallSkillWritesEmbeddedFile(t *testing.T) {
	home := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, installSkill(&out, strings.NewReader(""), home, true))

	data, err := os.ReadFile(skillPath(home))
	require.NoError(t, err)
	embedded, err := skillFS.ReadFile("skill/SKILL.md")
	require.NoError(t, err)
	assert.Equal(t, embedded, data)
	assert.Contains(t, out.String(), "Installed health skill")

	info, err := os.Stat(skillPath(home))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(skillPath(home)))
	require.NoError(t, err)
	assert.True(t, dirInfo.IsDir())
}

func TestInstallSkillOverwritesExistingFile(t *testing.T) {
	home := t.TempDir()
	path := skillPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0600))

	var out bytes.Buffer
	require.NoError(t, installSkill(&out, strings.NewReader("yes\n"), home, false))

	assert.Contains(t, out.String(), "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale content")
	assert.Contains(t, string(data), "name: health")
}

func TestInstallSkillDeclined(t *testing.T) {
	for _, answer := range []string{"n\n", "\n", ""} {
		home := t.TempDir()
		var out bytes.Buffer
		require.NoError(t, installSkill(&out, strings.NewReader(answer), home, false))

		assert.Contains(t, out.String(), "Installation canceled.")
		_, err := os.Stat(skillPath(home))
		assert.True(t, os.IsNotExist(err), "answer %q should not install", answer)
	}
}

func TestSkillSkipConfirmFlag(t *testing.T) {
	flag := installSkillCmd.Flags().Lookup("yes")
	require.NotNil(t, flag)
	assert.Equal(t, "y", flag.Shorthand)
	assert.Equal(t, "false", flag.DefValue)
}

func TestSkillEmbeddedContentDocumentsTools(t *testing.T) {
	content, err := skillFS.ReadFile("skill/SKILL.md")
	require.NoError(t, err)
	s := string(content)

	assert.True(t, strings.HasPrefix(s, "---\nname: health\n"))
	assert.Contains(t, s, "description:")

	for _, tool := range []string{
		"mcp__health__log_weight",
		"mcp__health__log_medication",
		"mcp__health__log_water",
		"mcp__health__log_food",
		"mcp__health__list_records",
		"mcp__health__delete_record",
		"mcp__health__day_totals",
	} {
		assert.Contains(t, s, tool)
	}
	for _, coll := range collectionNames {
		assert.Contains(t, s, coll)
	}
}
