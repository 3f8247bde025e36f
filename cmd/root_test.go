package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"locate", "batch", "synth", "check", "runs", "export"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "ddlocate", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestLocateCommand_Flags(t *testing.T) {
	for _, name := range []string{"events", "obs", "label", "geojson", "no-store", "trace"} {
		require.NotNil(t, locateCmd.Flags().Lookup(name), "locate command should have --%s flag", name)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	require.NotNil(t, batchCmd.Flags().Lookup("manifest"))

	workers := batchCmd.Flags().Lookup("workers")
	require.NotNil(t, workers)
	assert.Equal(t, "0", workers.DefValue)
}

func TestSynthCommand_Flags(t *testing.T) {
	for _, name := range []string{"events", "stations", "out", "phase", "dt-shift", "noise", "seed"} {
		require.NotNil(t, synthCmd.Flags().Lookup(name), "synth command should have --%s flag", name)
	}
	assert.Equal(t, "P", synthCmd.Flags().Lookup("phase").DefValue)
	assert.Equal(t, "obs.dat", synthCmd.Flags().Lookup("out").DefValue)
}

func TestCheckCommand_Flags(t *testing.T) {
	for _, name := range []string{"events", "obs", "dx", "dy", "dz", "dt"} {
		require.NotNil(t, checkCmd.Flags().Lookup(name), "check command should have --%s flag", name)
	}
}

func TestRunsCommand_HasShowSubcommand(t *testing.T) {
	found := false
	for _, c := range runsCmd.Commands() {
		if c.Name() == "show" {
			found = true
		}
	}
	assert.True(t, found)

	limit := runsCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "50", limit.DefValue)
}
