// Command clustercheck loads the search cluster configuration, reports the
// health of every configured cluster and optionally serves probe endpoints or
// runs a one-off text analysis.
//
// Configuration comes from the environment (and a .env file when present):
// SEARCH_CONFIG_FILE, SEARCH_CLUSTERS and the other SEARCH_* variables, plus
// LOG_LEVEL, LOG_FORMAT, APP_ENV and the PROBE_* server settings.
//
//	clustercheck                       # print the health report and exit
//	clustercheck -serve                # serve /livez, /readyz and /clusters
//	clustercheck -cluster c1 -index books -analyze "quick brown fox"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dmitrymomot/searchkit/pkg/cluster"
	"github.com/dmitrymomot/searchkit/pkg/config"
	"github.com/dmitrymomot/searchkit/pkg/esclient"
	"github.com/dmitrymomot/searchkit/pkg/logger"
	"github.com/dmitrymomot/searchkit/pkg/opaqueid"
	"github.com/dmitrymomot/searchkit/pkg/probe"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
	Analyzer  string `env:"SEARCH_ANALYZER" envDefault:"ik_smart"`

	Probe probe.Config
}

var errUnhealthy = errors.New("one or more search clusters are unhealthy")

func main() {
	os.Exit(run())
}

func run() int {
	serve := flag.Bool("serve", false, "serve probe endpoints instead of exiting after the report")
	clusterName := flag.String("cluster", "", "cluster used by -analyze")
	indexName := flag.String("index", "", "index used by -analyze")
	analyze := flag.String("analyze", "", "text to tokenize with the configured analyzer")
	timeout := flag.Duration("timeout", 10*time.Second, "timeout of the health report and analysis")
	flag.Parse()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "clustercheck"),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(opaqueid.LoggerExtractor()),
	}
	if cfg.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(strings.ToLower(cfg.LogFormat))))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	settings, err := cluster.LoadSettings()
	if err != nil {
		log.Error("failed to load cluster settings", logger.Error(err))
		return 1
	}
	registry := cluster.NewRegistry(settings.Clusters, cluster.WithLogger(log))

	ctx := context.Background()

	if *serve {
		srv := probe.NewFromConfig(cfg.Probe, probe.WithLogger(log))
		if err := srv.Run(ctx, srv.Handler(registry)); err != nil {
			log.Error("probe server failed", logger.Error(err))
			return 1
		}
		return 0
	}

	code := 0
	if err := report(ctx, registry, *timeout); err != nil {
		log.Error("health report", logger.Error(err))
		code = 2
	}

	if *analyze != "" {
		client := esclient.New(registry, esclient.WithLogger(log), esclient.WithAnalyzer(cfg.Analyzer))
		actx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()

		tokens, err := client.AnalyzeText(actx, esclient.IndexInfo{
			ClusterName: *clusterName,
			IndexName:   *indexName,
		}, *analyze)
		if err != nil {
			log.Error("analysis failed",
				slog.String("outcome", esclient.Classify(err).String()),
				logger.Error(err),
			)
			return 1
		}
		fmt.Println(strings.Join(tokens, " "))
	}
	return code
}

func report(ctx context.Context, registry *cluster.Registry, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := registry.Report(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(statuses); err != nil {
		return err
	}

	for _, st := range statuses {
		if !st.Healthy {
			return errUnhealthy
		}
	}
	return nil
}
