package cluster

import (
	"errors"
	"sort"
	"strings"

	"github.com/dmitrymomot/searchkit/pkg/config"
)

// Engine selects the client library used for a cluster.
type Engine string

const (
	EngineElasticsearch Engine = "elasticsearch"
	EngineOpenSearch    Engine = "opensearch"
)

// Config describes one named cluster. The YAML keys follow the
// es.cluster.esConfigs layout used by existing deployments.
type Config struct {
	Name       string `yaml:"clusterName"`
	Nodes      string `yaml:"nodes"`
	Engine     Engine `yaml:"engine,omitempty"`
	Scheme     string `yaml:"scheme,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	MaxRetries int    `yaml:"maxRetries,omitempty"`
}

// Settings is the full list of configured clusters.
type Settings struct {
	Clusters []Config `yaml:"clusters"`
}

// fileSettings accepts both a top-level clusters list and the nested
// es.cluster.esConfigs layout.
type fileSettings struct {
	Clusters []Config `yaml:"clusters"`
	ES       struct {
		Cluster struct {
			EsConfigs []Config `yaml:"esConfigs"`
		} `yaml:"cluster"`
	} `yaml:"es"`
}

// envSettings maps the SEARCH_* environment variables. Cluster-independent
// values act as defaults for every cluster that leaves them empty.
type envSettings struct {
	ConfigFile string            `env:"SEARCH_CONFIG_FILE"`
	Clusters   map[string]string `env:"SEARCH_CLUSTERS" envSeparator:";" envKeyValSeparator:"="`
	Engine     string            `env:"SEARCH_ENGINE"`
	Scheme     string            `env:"SEARCH_SCHEME"`
	Username   string            `env:"SEARCH_USERNAME"`
	Password   string            `env:"SEARCH_PASSWORD"`
	MaxRetries int               `env:"SEARCH_MAX_RETRIES"`
}

// LoadSettingsFile reads clusters from a YAML file.
func LoadSettingsFile(path string) (Settings, error) {
	var fs fileSettings
	if err := config.LoadFile(path, &fs); err != nil {
		return Settings{}, err
	}
	clusters := append([]Config{}, fs.ES.Cluster.EsConfigs...)
	clusters = append(clusters, fs.Clusters...)
	return Settings{Clusters: clusters}, nil
}

// LoadSettings builds Settings from the environment: clusters from the file
// named by SEARCH_CONFIG_FILE (if any) followed by the clusters listed in
// SEARCH_CLUSTERS ("name=host:port,host:port;name2=..."). SEARCH_ENGINE,
// SEARCH_SCHEME, SEARCH_USERNAME, SEARCH_PASSWORD and SEARCH_MAX_RETRIES fill
// fields left empty by individual clusters.
func LoadSettings() (Settings, error) {
	var es envSettings
	if err := config.Load(&es); err != nil {
		return Settings{}, err
	}

	var s Settings
	if es.ConfigFile != "" {
		fromFile, err := LoadSettingsFile(es.ConfigFile)
		if err != nil {
			return Settings{}, err
		}
		s = fromFile
	}

	names := make([]string, 0, len(es.Clusters))
	for name := range es.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Clusters = append(s.Clusters, Config{
			Name:  strings.TrimSpace(name),
			Nodes: es.Clusters[name],
		})
	}

	if len(s.Clusters) == 0 {
		return Settings{}, ErrNoClusters
	}

	for i := range s.Clusters {
		c := &s.Clusters[i]
		if c.Engine == "" {
			c.Engine = Engine(es.Engine)
		}
		if c.Scheme == "" {
			c.Scheme = es.Scheme
		}
		if c.Username == "" {
			c.Username = es.Username
			if c.Password == "" {
				c.Password = es.Password
			}
		}
		if c.MaxRetries == 0 {
			c.MaxRetries = es.MaxRetries
		}
	}
	return s, nil
}

// MustLoadSettings is like LoadSettings but panics on failure.
func MustLoadSettings() Settings {
	s, err := LoadSettings()
	if err != nil {
		panic(errors.Join(errors.New("failed to load search cluster settings"), err))
	}
	return s
}

func (c Config) engine() Engine {
	if c.Engine == "" {
		return EngineElasticsearch
	}
	return Engine(strings.ToLower(string(c.Engine)))
}

func (c Config) scheme() string {
	if c.Scheme == "" {
		return "http"
	}
	return strings.ToLower(c.Scheme)
}
