//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "predict", "batch", "rank", "aggregate", "import"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "crimecast", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "root command should have a persistent --config flag")
	assert.Empty(t, flag.DefValue)

	prev := cfg
	t.Cleanup(func() {
		cfg = prev
		configFile = ""
	})

	path := filepath.Join(t.TempDir(), "crimecast.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\nlog:\n  format: console\n"), 0o644))
	require.NoError(t, rootCmd.PersistentFlags().Set("config", path))
	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, 9191, cfg.Server.Port)

	require.NoError(t, rootCmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "absent.yaml")))
	assert.ErrorContains(t, rootCmd.PersistentPreRunE(rootCmd, nil), "load config")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPredictCommand_Flags(t *testing.T) {
	for _, name := range []string{"neighborhood", "year", "month", "victims", "suspects", "weapon"} {
		assert.NotNil(t, predictCmd.Flags().Lookup(name), "predict should have --%s flag", name)
	}
	assert.Equal(t, "1", predictCmd.Flags().Lookup("victims").DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"year", "month", "neighborhoods"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
}

func TestRankCommand_Flags(t *testing.T) {
	flag := rankCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
	assert.NotNil(t, rankCmd.Flags().Lookup("xlsx"))
}

func TestAggregateAndImportCommand_Flags(t *testing.T) {
	for _, name := range []string{"incidents", "out", "assign"} {
		assert.NotNil(t, aggregateCmd.Flags().Lookup(name), "aggregate should have --%s flag", name)
	}
	assert.NotNil(t, importCmd.Flags().Lookup("from"))
}
