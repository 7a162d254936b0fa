// Copyright 2016 Qubit Digital Ltd.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package root holds the lsfindex root command, and the state shared by its
// subcommands.
package root

import (
	"context"
	"flag"
	"os"

	"github.com/QubitProducts/lsfindex/config"
	"github.com/QubitProducts/lsfindex/names"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	schemaFile  string
	namesFile   string
	metricsFile string
	noCache     bool
	parallelism int

	cfg         = config.Default()
	resolver    = names.NewResolver()
	stopWatcher = func() {}
)

// RootCmd is the lsfindex command, subcommands add themselves to it.
var RootCmd = &cobra.Command{
	Use:   "lsfindex",
	Short: "lsfindex indexes and queries binary telemetry logs",
	Long: `lsfindex builds random access indexes over binary telemetry logs, and
uses them to list, dump, search and export the records they hold.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	RootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	RootCmd.PersistentFlags().StringVar(&schemaFile, "schema", "", "schema used for logs without a schema file alongside them")
	RootCmd.PersistentFlags().StringVar(&namesFile, "names", "", "YAML directory of system and entity names")
	RootCmd.PersistentFlags().StringVar(&metricsFile, "metrics.textfile", "", "write prometheus metrics to this file on exit")
	RootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "don't read or write index cache files")
	RootCmd.PersistentFlags().IntVar(&parallelism, "parallelism", 0, "number of logs to index at once (default from config)")
}

// Execute runs the command line.
func Execute() {
	flag.Set("logtostderr", "true")
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	flag.CommandLine.Parse(nil)
	glog.CopyStandardLogTo("INFO")

	if cfgFile != "" {
		c, err := config.LoadFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
	}
	if schemaFile != "" {
		cfg.Schema = schemaFile
	}
	if namesFile != "" {
		cfg.Names = namesFile
	}
	if noCache {
		cfg.Cache = false
	}
	if parallelism > 0 {
		cfg.Parallelism = parallelism
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch {
	case cfg.Names != "" && cfg.WatchNames:
		ctx, cancel := context.WithCancel(context.Background())
		stopWatcher = cancel
		if err := names.Watch(ctx, cfg.Names, resolver); err != nil {
			return err
		}
	case cfg.Names != "":
		if err := names.LoadFile(cfg.Names, resolver); err != nil {
			return err
		}
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	stopWatcher()
	if metricsFile == "" {
		return nil
	}
	glog.V(1).Infof("writing metrics to %s", metricsFile)
	return prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer)
}

// Config returns the configuration in effect.
func Config() *config.Config {
	return cfg
}

// Resolver returns the resolver shared by all indexes.
func Resolver() *names.Resolver {
	return resolver
}
