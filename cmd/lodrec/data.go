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
	"os"

	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/dataset"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <database>",
		Short: "Import the configured data store into a SQLite database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			from, release, err := openLoader(cfg)
			if err != nil {
				return err
			}
			defer release()
			to, err := dataset.NewSQLLoader(args[0])
			if err != nil {
				return errors.Trace(err)
			}
			defer func() {
				if err := to.Close(); err != nil {
					log.Logger().Error("failed to close database", zap.Error(err))
				}
			}()
			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("import"),
				progressbar.OptionShowCount())
			if err = to.Import(cmd.Context(), from, func() {
				_ = bar.Add(1)
			}); err != nil {
				return errors.Trace(err)
			}
			_ = bar.Finish()
			log.Logger().Info("import data successfully", zap.String("database", args[0]))
			return nil
		},
	}
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <directory>",
		Short: "Export the configured data store as CSV files.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loader, release, err := openLoader(cfg)
			if err != nil {
				return err
			}
			defer release()
			if err = os.MkdirAll(args[0], os.ModePerm); err != nil {
				return errors.Trace(err)
			}
			if err = dataset.ExportCSV(cmd.Context(), loader, args[0], cfg.Database.Separator); err != nil {
				return errors.Trace(err)
			}
			log.Logger().Info("export data successfully", zap.String("directory", args[0]))
			return nil
		},
	}
}
