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

package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	assert.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "api_key = \"\"", "api_key = \"19260817\"", -1)
	viper.SetConfigType("toml")
	err = viper.ReadConfig(strings.NewReader(text))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)

	// [database]
	assert.Equal(t, "csv://testdata", config.Database.DataStore)
	assert.Equal(t, ",", config.Database.Separator)
	assert.False(t, config.Database.HasHeader)
	// [recommend]
	assert.Equal(t, ParadigmCF, config.Recommend.Paradigm)
	assert.Equal(t, "", config.Recommend.Storage)
	assert.Equal(t, StorageInvertedLists, config.Recommend.GetStorage())
	assert.Equal(t, FeedbackExplicit, config.Recommend.FeedbackType)
	assert.Equal(t, "cosine", config.Recommend.Similarity)
	assert.Equal(t, 20, config.Recommend.NeighborhoodSize)
	assert.Equal(t, 6, config.Recommend.DecimalPlaces)
	assert.Equal(t, 0, config.Recommend.TopRatingBuckets)
	assert.False(t, config.Recommend.IncludeConsumed)
	assert.Equal(t, 4, config.Recommend.NumJobs)
	assert.Equal(t, 1024, config.Recommend.CacheSize)
	assert.Equal(t, 10*time.Minute, config.Recommend.CacheTTL)
	// [graph]
	assert.Equal(t, DistributionOutgoingSumOne, config.Graph.EdgeDistribution)
	assert.Equal(t, DistributionLikedItems, config.Graph.PriorDistribution)
	assert.Equal(t, 3, config.Graph.MarkovSteps)
	assert.Equal(t, 0.15, config.Graph.Damping)
	assert.Equal(t, 100, config.Graph.MaxIterations)
	assert.Equal(t, 1e-6, config.Graph.Tolerance)
	assert.Equal(t, 3, config.Graph.MaxHops)
	assert.Equal(t, 3, config.Graph.ReachabilityHops)
	assert.False(t, config.Graph.Undirected)
	// [server]
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 8087, config.Server.Port)
	assert.Equal(t, 10, config.Server.DefaultN)
	assert.Equal(t, 1000, config.Server.MaxN)
	assert.Equal(t, "19260817", config.Server.APIKey)
	assert.Zero(t, config.Server.RequestsPerSecond)
	assert.NoError(t, config.Validate())
}

func TestSetDefault(t *testing.T) {
	setDefault()
	viper.SetConfigType("toml")
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("LODREC_DATA_STORE", "sqlite://data.db")
	t.Setenv("LODREC_PARADIGM", "prp")
	t.Setenv("LODREC_NEIGHBORHOOD_SIZE", "7")
	t.Setenv("LODREC_SERVER_PORT", "123")
	t.Setenv("LODREC_SERVER_HOST", "<server_host>")
	t.Setenv("LODREC_SERVER_API_KEY", "<server_api_key>")

	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite://data.db", config.Database.DataStore)
	assert.Equal(t, ParadigmPRP, config.Recommend.Paradigm)
	assert.Equal(t, StorageInMemoryGraph, config.Recommend.GetStorage())
	assert.Equal(t, 7, config.Recommend.NeighborhoodSize)
	assert.Equal(t, 123, config.Server.Port)
	assert.Equal(t, "<server_host>", config.Server.Host)
	assert.Equal(t, "<server_api_key>", config.Server.APIKey)

	// check default values
	assert.Equal(t, 100, config.Graph.MaxIterations)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	assert.NoError(t, config.Validate())

	config = GetDefaultConfig()
	config.Recommend.NeighborhoodSize = 0
	err := config.Validate()
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "NeighborhoodSize")

	config = GetDefaultConfig()
	config.Recommend.DecimalPlaces = -1
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Recommend.Similarity = "pearson"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Graph.Damping = 1
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Database.DataStore = "redis://localhost:6379"
	err = config.Validate()
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "must start with csv:// or sqlite://")

	config = GetDefaultConfig()
	config.Database.DataStore = "csv://"
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))

	config = GetDefaultConfig()
	config.Server.MaxN = config.Server.DefaultN - 1
	err = config.Validate()
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "MaxN")
}

func TestValidateStorage(t *testing.T) {
	config := GetDefaultConfig()
	config.Recommend.Paradigm = ParadigmKSMC
	config.Recommend.Storage = StorageInvertedLists
	err := config.Validate()
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "paradigm ksmc")

	config.Recommend.Storage = StorageInMemoryGraph
	assert.NoError(t, config.Validate())

	config.Recommend.Paradigm = ParadigmCF
	config.Recommend.Storage = StorageScaledInvertedLists
	assert.NoError(t, config.Validate())
	config.Recommend.Storage = StorageInMemoryGraph
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
}

func TestStorageOf(t *testing.T) {
	assert.Equal(t, []string{StorageInvertedLists, StorageScaledInvertedLists}, StorageOf(ParadigmCF))
	assert.Equal(t, []string{StorageInvertedLists, StorageScaledInvertedLists}, StorageOf(ParadigmClassifier))
	for _, paradigm := range []string{ParadigmKSMC, ParadigmPRP, ParadigmReword, ParadigmReachability} {
		assert.Equal(t, []string{StorageInMemoryGraph}, StorageOf(paradigm))
		assert.True(t, NeedsGraph(paradigm))
		assert.False(t, NeedsRatings(paradigm))
	}
	assert.Nil(t, StorageOf("unknown"))
	assert.False(t, NeedsGraph(ParadigmCF))
	assert.True(t, NeedsGraph(ParadigmClassifier))
	assert.True(t, NeedsRatings(ParadigmClassifier))
}
