// Copyright 2026 gorse Project Authors
//
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

package main

import (
	"context"
	"fmt"

	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/cmd/version"
	"github.com/gorse-io/lodrec/config"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/gorse-io/lodrec/logics"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "lodrec",
		Short:         "Recommender over ratings and linked open data.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			debug, _ := cmd.Flags().GetBool("debug")
			log.SetLogger(cmd.Flags(), debug)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				_, err := fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
				return err
			}
			return cmd.Help()
		},
	}
	flags := rootCommand.PersistentFlags()
	log.AddFlags(flags)
	flags.Bool("debug", false, "use debug log mode")
	flags.StringP("config", "c", "", "configuration file path")
	flags.BoolP("version", "v", false, "lodrec version")
	flags.String("data-store", "", "override the data store, e.g. csv://data or sqlite://data.db")
	flags.String("paradigm", "", "override the recommendation paradigm")
	flags.String("storage", "", "override the storage of the paradigm")
	rootCommand.AddCommand(
		newServeCommand(),
		newRecommendCommand(),
		newCandidatesCommand(),
		newNeighborsCommand(),
		newPredictCommand(),
		newRelatednessCommand(),
		newStatsCommand(),
		newImportCommand(),
		newExportCommand(),
	)
	return rootCommand
}

// loadConfig loads the configuration file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if cmd.Flags().Changed("data-store") {
		cfg.Database.DataStore, _ = cmd.Flags().GetString("data-store")
	}
	if cmd.Flags().Changed("paradigm") {
		cfg.Recommend.Paradigm, _ = cmd.Flags().GetString("paradigm")
	}
	if cmd.Flags().Changed("storage") {
		cfg.Recommend.Storage, _ = cmd.Flags().GetString("storage")
	}
	if err = cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

// openLoader opens the configured data store. The returned function releases it.
func openLoader(cfg *config.Config) (dataset.Loader, func(), error) {
	loader, err := dataset.Open(cfg.Database.DataStore, cfg.Database.Separator, cfg.Database.HasHeader)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	release := func() {}
	if sqlLoader, ok := loader.(*dataset.SQLLoader); ok {
		release = func() {
			if err := sqlLoader.Close(); err != nil {
				log.Logger().Error("failed to close data store", zap.Error(err))
			}
		}
	}
	return loader, release, nil
}

func loadRecommender(ctx context.Context, cmd *cobra.Command) (*config.Config, *logics.Recommender, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	loader, release, err := openLoader(cfg)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer release()
	d, err := dataset.Load(ctx, loader)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	recommender, err := logics.NewRecommender(ctx, cfg, d)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return cfg, recommender, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
