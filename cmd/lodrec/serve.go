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
	"os/signal"
	"syscall"

	"github.com/gorse-io/lodrec/base/log"
	"github.com/gorse-io/lodrec/server"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations through REST APIs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg, recommender, err := loadRecommender(ctx, cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if err = server.NewRestServer(cfg, recommender).StartHttpServer(ctx); err != nil {
				return err
			}
			log.Logger().Info("stop lodrec server successfully")
			return nil
		},
	}
	serveCommand.Flags().String("host", "", "host of the REST server")
	serveCommand.Flags().Int("port", 0, "port of the REST server")
	return serveCommand
}
