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
	"fmt"
	"strconv"

	"github.com/gorse-io/lodrec/logics"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func newRecommendCommand() *cobra.Command {
	recommendCommand := &cobra.Command{
		Use:   "recommend <user>",
		Short: "Print top recommendations for a user.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			n := cfg.Server.DefaultN
			if cmd.Flags().Changed("n") {
				n, _ = cmd.Flags().GetInt("n")
			}
			includeConsumed := cfg.Recommend.IncludeConsumed
			if cmd.Flags().Changed("include-consumed") {
				includeConsumed, _ = cmd.Flags().GetBool("include-consumed")
			}
			scores, err := recommender.GetTopRecommendations(cmd.Context(), args[0], n, includeConsumed)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header([]string{"Rank", "Item", "Score"})
			for i, score := range scores {
				if score == nil {
					break
				}
				if err = table.Append([]string{strconv.Itoa(i + 1), score.Id, formatScore(score.Score)}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	recommendCommand.Flags().IntP("n", "n", 10, "number of recommendations")
	recommendCommand.Flags().Bool("include-consumed", false, "recommend consumed items")
	return recommendCommand
}

func newCandidatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <user>",
		Short: "Print recommendation candidates of a user.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			candidates, err := recommender.GetRecCandidates(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, candidate := range candidates {
				if _, err = fmt.Fprintln(cmd.OutOrStdout(), candidate); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newNeighborsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors <resource>",
		Short: "Print neighbors of a resource.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			neighbors, err := recommender.GetNeighbors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderScores(cmd, []string{"Neighbor", "Score"}, neighbors)
		},
	}
}

func renderScores(cmd *cobra.Command, header []string, scores []logics.Score) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header(header)
	for _, score := range scores {
		if err := table.Append([]string{score.Id, formatScore(score.Score)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func newPredictCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <user> <item>",
		Short: "Predict the score of an item for a user.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			score, err := recommender.PredictRating(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatScore(score))
			return err
		},
	}
}

func newRelatednessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relatedness <node1> <node2>",
		Short: "Print the importance of node2 relative to node1.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			score, err := recommender.GetResRelativeImportance(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatScore(score))
			return err
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print statistics of the indexed data.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, recommender, err := loadRecommender(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			stats := recommender.Stats()
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header([]string{"Statistic", "Value"})
			for _, row := range [][]string{
				{"paradigm", stats.Paradigm},
				{"storage", stats.Storage},
				{"resources", strconv.Itoa(stats.Resources)},
				{"users", strconv.Itoa(stats.Users)},
				{"items", strconv.Itoa(stats.Items)},
				{"ratings", strconv.Itoa(stats.Ratings)},
				{"predicates", strconv.Itoa(stats.Predicates)},
				{"vertices", strconv.Itoa(stats.Vertices)},
				{"edges", strconv.Itoa(stats.Edges)},
				{"targets", strconv.Itoa(stats.Targets)},
			} {
				if err = table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}
