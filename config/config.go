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
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	ParadigmCF           = "cf"
	ParadigmKSMC         = "ksmc"
	ParadigmPRP          = "prp"
	ParadigmReword       = "reword"
	ParadigmReachability = "reachability"
	ParadigmClassifier   = "classifier"
)

const (
	StorageInvertedLists       = "inverted-lists"
	StorageScaledInvertedLists = "scaled-inverted-lists"
	StorageInMemoryGraph       = "in-memory-graph"
)

const (
	FeedbackExplicit = "explicit"
	FeedbackImplicit = "implicit"
)

const (
	DistributionUniform        = "uniform"
	DistributionOutgoingSumOne = "outgoing-sum-one"
	DistributionLikedItems     = "liked-items"
)

const (
	CSVPrefix    = "csv://"
	SQLitePrefix = "sqlite://"
)

// paradigmStorage lists the storage kinds each paradigm can run on. The first entry is the default.
var paradigmStorage = map[string][]string{
	ParadigmCF:           {StorageInvertedLists, StorageScaledInvertedLists},
	ParadigmClassifier:   {StorageInvertedLists, StorageScaledInvertedLists},
	ParadigmKSMC:         {StorageInMemoryGraph},
	ParadigmPRP:          {StorageInMemoryGraph},
	ParadigmReword:       {StorageInMemoryGraph},
	ParadigmReachability: {StorageInMemoryGraph},
}

// StorageOf returns the storage kinds usable by a paradigm.
func StorageOf(paradigm string) []string {
	return paradigmStorage[paradigm]
}

// NeedsGraph returns true if the paradigm reads the triple graph.
func NeedsGraph(paradigm string) bool {
	return paradigm != ParadigmCF
}

// NeedsRatings returns true if the paradigm reads the rating store through an inverted index.
func NeedsRatings(paradigm string) bool {
	return paradigm == ParadigmCF || paradigm == ParadigmClassifier
}

// Config is the configuration for the engine.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Server    ServerConfig    `mapstructure:"server"`
}

// DatabaseConfig is the configuration for the data source.
type DatabaseConfig struct {
	DataStore string `mapstructure:"data_store" validate:"required,data_store"`
	Separator string `mapstructure:"separator" validate:"required,len=1"`
	HasHeader bool   `mapstructure:"has_header"`
}

// RecommendConfig is the configuration for neighborhood recommendation.
type RecommendConfig struct {
	Paradigm         string        `mapstructure:"paradigm" validate:"oneof=cf ksmc prp reword reachability classifier"`
	Storage          string        `mapstructure:"storage" validate:"omitempty,oneof=inverted-lists scaled-inverted-lists in-memory-graph"`
	FeedbackType     string        `mapstructure:"feedback_type" validate:"oneof=explicit implicit"`
	Similarity       string        `mapstructure:"similarity" validate:"oneof=cosine"`
	NeighborhoodSize int           `mapstructure:"neighborhood_size" validate:"gte=1"`
	DecimalPlaces    int           `mapstructure:"decimal_places" validate:"gte=0"`
	TopRatingBuckets int           `mapstructure:"top_rating_buckets" validate:"gte=0"`
	IncludeConsumed  bool          `mapstructure:"include_consumed"`
	NumJobs          int           `mapstructure:"num_jobs" validate:"gte=1"`
	CacheSize        int           `mapstructure:"cache_size" validate:"gte=1"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// GetStorage returns the configured storage kind, or the default kind of the paradigm.
func (config *RecommendConfig) GetStorage() string {
	if config.Storage != "" {
		return config.Storage
	}
	if kinds := StorageOf(config.Paradigm); len(kinds) > 0 {
		return kinds[0]
	}
	return ""
}

// GraphConfig is the configuration for graph ranking and relatedness.
type GraphConfig struct {
	EdgeDistribution  string  `mapstructure:"edge_distribution" validate:"oneof=uniform outgoing-sum-one"`
	PriorDistribution string  `mapstructure:"prior_distribution" validate:"oneof=uniform liked-items"`
	MarkovSteps       int     `mapstructure:"markov_steps" validate:"gte=1"`
	Damping           float64 `mapstructure:"damping" validate:"gt=0,lt=1"`
	MaxIterations     int     `mapstructure:"max_iterations" validate:"gte=1"`
	Tolerance         float64 `mapstructure:"tolerance" validate:"gt=0"`
	MaxHops           int     `mapstructure:"max_hops" validate:"gte=1"`
	ReachabilityHops  int     `mapstructure:"reachability_hops" validate:"gte=1"`
	Undirected        bool    `mapstructure:"undirected"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	DefaultN int    `mapstructure:"default_n" validate:"gte=1"`
	MaxN     int    `mapstructure:"max_n" validate:"gtefield=DefaultN"`
	APIKey   string `mapstructure:"api_key"`
	// zero means unlimited
	RequestsPerSecond int `mapstructure:"requests_per_second" validate:"gte=0"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: CSVPrefix + ".",
			Separator: ",",
		},
		Recommend: RecommendConfig{
			Paradigm:         ParadigmCF,
			FeedbackType:     FeedbackExplicit,
			Similarity:       "cosine",
			NeighborhoodSize: 20,
			DecimalPlaces:    6,
			NumJobs:          runtime.NumCPU(),
			CacheSize:        1024,
			CacheTTL:         10 * time.Minute,
		},
		Graph: GraphConfig{
			EdgeDistribution:  DistributionOutgoingSumOne,
			PriorDistribution: DistributionLikedItems,
			MarkovSteps:       3,
			Damping:           0.15,
			MaxIterations:     100,
			Tolerance:         1e-6,
			MaxHops:           3,
			ReachabilityHops:  3,
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8087,
			DefaultN: 10,
			MaxN:     1000,
		},
	}
}

// Validate checks option values and the compatibility between the paradigm and the storage.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("data_store", func(fl validator.FieldLevel) bool {
		dsn := fl.Field().String()
		return (strings.HasPrefix(dsn, CSVPrefix) && len(dsn) > len(CSVPrefix)) ||
			(strings.HasPrefix(dsn, SQLitePrefix) && len(dsn) > len(SQLitePrefix))
	}); err != nil {
		return errors.Trace(err)
	}
	if err := validate.Struct(config); err != nil {
		// translate errors
		trans := ut.New(en.New()).GetFallback()
		if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
			return errors.Trace(err)
		}
		if err := validate.RegisterTranslation("data_store", trans, func(ut ut.Translator) error {
			return ut.Add("data_store", "{0} must start with csv:// or sqlite://", true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("data_store", fe.Field())
			return t
		}); err != nil {
			return errors.Trace(err)
		}
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return errors.Trace(err)
		}
		var errMsg []string
		for _, e := range errs.Translate(trans) {
			errMsg = append(errMsg, e)
		}
		return errors.NewNotValid(nil, strings.Join(errMsg, ";"))
	}
	kinds := StorageOf(config.Recommend.Paradigm)
	storage := config.Recommend.GetStorage()
	for _, kind := range kinds {
		if kind == storage {
			return nil
		}
	}
	return errors.NewNotValid(nil, fmt.Sprintf("storage %s is not supported by paradigm %s (supported: %s)",
		storage, config.Recommend.Paradigm, strings.Join(kinds, ",")))
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	viper.SetDefault("database.separator", defaultConfig.Database.Separator)
	viper.SetDefault("database.has_header", defaultConfig.Database.HasHeader)
	// [recommend]
	viper.SetDefault("recommend.paradigm", defaultConfig.Recommend.Paradigm)
	viper.SetDefault("recommend.storage", defaultConfig.Recommend.Storage)
	viper.SetDefault("recommend.feedback_type", defaultConfig.Recommend.FeedbackType)
	viper.SetDefault("recommend.similarity", defaultConfig.Recommend.Similarity)
	viper.SetDefault("recommend.neighborhood_size", defaultConfig.Recommend.NeighborhoodSize)
	viper.SetDefault("recommend.decimal_places", defaultConfig.Recommend.DecimalPlaces)
	viper.SetDefault("recommend.top_rating_buckets", defaultConfig.Recommend.TopRatingBuckets)
	viper.SetDefault("recommend.include_consumed", defaultConfig.Recommend.IncludeConsumed)
	viper.SetDefault("recommend.num_jobs", defaultConfig.Recommend.NumJobs)
	viper.SetDefault("recommend.cache_size", defaultConfig.Recommend.CacheSize)
	viper.SetDefault("recommend.cache_ttl", defaultConfig.Recommend.CacheTTL)
	// [graph]
	viper.SetDefault("graph.edge_distribution", defaultConfig.Graph.EdgeDistribution)
	viper.SetDefault("graph.prior_distribution", defaultConfig.Graph.PriorDistribution)
	viper.SetDefault("graph.markov_steps", defaultConfig.Graph.MarkovSteps)
	viper.SetDefault("graph.damping", defaultConfig.Graph.Damping)
	viper.SetDefault("graph.max_iterations", defaultConfig.Graph.MaxIterations)
	viper.SetDefault("graph.tolerance", defaultConfig.Graph.Tolerance)
	viper.SetDefault("graph.max_hops", defaultConfig.Graph.MaxHops)
	viper.SetDefault("graph.reachability_hops", defaultConfig.Graph.ReachabilityHops)
	viper.SetDefault("graph.undirected", defaultConfig.Graph.Undirected)
	// [server]
	viper.SetDefault("server.host", defaultConfig.Server.Host)
	viper.SetDefault("server.port", defaultConfig.Server.Port)
	viper.SetDefault("server.default_n", defaultConfig.Server.DefaultN)
	viper.SetDefault("server.max_n", defaultConfig.Server.MaxN)
	viper.SetDefault("server.api_key", defaultConfig.Server.APIKey)
	viper.SetDefault("server.requests_per_second", defaultConfig.Server.RequestsPerSecond)
}

type configBinding struct {
	key string
	env string
}

func bindEnv() error {
	bindings := []configBinding{
		{"database.data_store", "LODREC_DATA_STORE"},
		{"recommend.paradigm", "LODREC_PARADIGM"},
		{"recommend.storage", "LODREC_STORAGE"},
		{"recommend.feedback_type", "LODREC_FEEDBACK_TYPE"},
		{"recommend.neighborhood_size", "LODREC_NEIGHBORHOOD_SIZE"},
		{"recommend.num_jobs", "LODREC_NUM_JOBS"},
		{"server.host", "LODREC_SERVER_HOST"},
		{"server.port", "LODREC_SERVER_PORT"},
		{"server.api_key", "LODREC_SERVER_API_KEY"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// LoadConfig loads configuration from toml file. An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	// set default config
	setDefault()

	// bind environment bindings
	if err := bindEnv(); err != nil {
		return nil, errors.Trace(err)
	}

	// load config file
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}

	// unmarshal config file
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
