package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/searchkit/pkg/config"
)

type envClusters struct {
	Clusters   map[string]string `env:"CFGTEST_CLUSTERS" envSeparator:";" envKeyValSeparator:"="`
	Engine     string            `env:"CFGTEST_ENGINE" envDefault:"elasticsearch"`
	Username   string            `env:"CFGTEST_USERNAME"`
	MaxRetries int               `env:"CFGTEST_MAX_RETRIES" envDefault:"3"`
}

type requiredNodes struct {
	Nodes string `env:"CFGTEST_REQUIRED_NODES,required"`
}

type cachedOnce struct {
	Value string `env:"CFGTEST_CACHED" envDefault:"first"`
}

type fileClusters struct {
	Name     string `yaml:"name"`
	Clusters []struct {
		Name  string `yaml:"clusterName"`
		Nodes string `yaml:"nodes"`
	} `yaml:"clusters"`
}

func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		os.Unsetenv(k)
	}
	config.ResetCache()
}

func TestLoad_MapFromEnv(t *testing.T) {
	unsetAll(t, "CFGTEST_USERNAME")
	t.Setenv("CFGTEST_CLUSTERS", "c1=127.0.0.1:9200,127.0.0.1:9201;c2=10.0.0.1:9200")
	t.Setenv("CFGTEST_ENGINE", "opensearch")

	var cfg envClusters
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, map[string]string{
		"c1": "127.0.0.1:9200,127.0.0.1:9201",
		"c2": "10.0.0.1:9200",
	}, cfg.Clusters)
	assert.Equal(t, "opensearch", cfg.Engine)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoad_MissingRequired(t *testing.T) {
	unsetAll(t, "CFGTEST_REQUIRED_NODES")

	var cfg requiredNodes
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)

	t.Setenv("CFGTEST_REQUIRED_NODES", "127.0.0.1:9200")
	require.NoError(t, config.Load(&cfg), "a failed parse must not be cached")
	assert.Equal(t, "127.0.0.1:9200", cfg.Nodes)
}

func TestLoad_Cached(t *testing.T) {
	unsetAll(t, "CFGTEST_CACHED")

	var first cachedOnce
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	t.Setenv("CFGTEST_CACHED", "second")

	var second cachedOnce
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value, "Load must serve the cached copy")

	var reloaded cachedOnce
	require.NoError(t, config.ForceReload(&reloaded))
	assert.Equal(t, "second", reloaded.Value)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *envClusters
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	assert.ErrorIs(t, config.LoadFile("testdata/clusters.yaml", cfg), config.ErrNilPointer)
}

func TestMustLoad_Panics(t *testing.T) {
	unsetAll(t, "CFGTEST_REQUIRED_NODES")

	assert.Panics(t, func() {
		var cfg requiredNodes
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv_Files(t *testing.T) {
	unsetAll(t, "CFGTEST_CLUSTERS", "CFGTEST_ENGINE", "CFGTEST_USERNAME", "CFGTEST_MAX_RETRIES")
	t.Cleanup(func() {
		unsetAll(t, "CFGTEST_CLUSTERS", "CFGTEST_ENGINE", "CFGTEST_USERNAME", "CFGTEST_MAX_RETRIES")
	})

	require.NoError(t, config.LoadEnv("testdata/.env.search", "testdata/.env.override"))

	var cfg envClusters
	require.NoError(t, config.Load(&cfg))

	assert.Len(t, cfg.Clusters, 2)
	assert.Equal(t, "10.0.1.1:9200", cfg.Clusters["backup"])
	// the first file wins for keys present in both
	assert.Equal(t, "opensearch", cfg.Engine)
	assert.Equal(t, "elastic", cfg.Username)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestLoadEnv_MissingFile(t *testing.T) {
	err := config.LoadEnv("testdata/does-not-exist.env")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)

	assert.Panics(t, func() {
		config.MustLoadEnv("testdata/does-not-exist.env")
	})
}

func TestLoadFile(t *testing.T) {
	var cfg fileClusters
	require.NoError(t, config.LoadFile("testdata/clusters.yaml", &cfg))

	assert.Equal(t, "search", cfg.Name)
	require.Len(t, cfg.Clusters, 2)
	assert.Equal(t, "c1", cfg.Clusters[0].Name)
	assert.Equal(t, "127.0.0.1:9200,127.0.0.1:9201", cfg.Clusters[0].Nodes)
	assert.Equal(t, "bad-entry", cfg.Clusters[1].Nodes)
}

func TestLoadFile_Errors(t *testing.T) {
	var cfg fileClusters

	err := config.LoadFile("testdata/missing.yaml", &cfg)
	assert.ErrorIs(t, err, config.ErrReadingFile)

	err = config.LoadFile("testdata/broken.yaml", &cfg)
	assert.ErrorIs(t, err, config.ErrParsingFile)
}
