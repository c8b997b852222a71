// File: cmd/root_test.go
package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommandStructure(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "hivecrawl", root.Use)
	assert.Equal(t, Version, root.Version)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["harvest"])
	assert.True(t, names["sessions"])

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestSessionsSubcommands(t *testing.T) {
	root := NewRootCommand()
	sessions, _, err := root.Find([]string{"sessions"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, c := range sessions.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["stats"])
	assert.True(t, names["cleanup"])
	assert.True(t, names["block"])
}

func TestHarvestRequiresTargets(t *testing.T) {
	root := NewRootCommand()
	harvest, _, err := root.Find([]string{"harvest"})
	require.NoError(t, err)
	assert.Error(t, harvest.Args(harvest, nil), "harvest needs at least one community URL")
	assert.NoError(t, harvest.Args(harvest, []string{"https://site.example/groups/x"}))
}

func TestInitializeViperMissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	v, err := initializeViper("")
	require.NoError(t, err, "a missing default config file is not an error")
	require.NotNil(t, v)

	_, err = initializeViper("/nonexistent/config.yaml")
	assert.Error(t, err, "an explicitly named config file must exist")
}
