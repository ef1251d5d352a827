package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gocohort/domain/clustering"
	"gocohort/internal/errors"
)

// AlgorithmAll runs every algorithm and keeps the best-ranked result.
const AlgorithmAll = "all"

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Clustering ClusteringConfig
	Features   FeatureConfig
	Validation ValidationConfig
	LogLevel   string
}

// DatabaseConfig holds database connection settings. An empty URL runs
// without persistence.
type DatabaseConfig struct {
	URL     string
	Driver  string
	SSLMode string
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ClusteringConfig holds algorithm selection and parameters
type ClusteringConfig struct {
	Algorithm    string
	K            int
	KRange       []int
	Seed         int64
	KMeansNInit  int
	KMeansMaxIt  int
	DBSCANEps    float64
	DBSCANMinPts int
	Linkage      clustering.Linkage
	GMMMaxIter   int
}

// FeatureConfig mirrors the feature groups used to build the matrix
type FeatureConfig struct {
	IncludeDrivers       bool
	IncludeContradiction bool
	IncludeQuantum       bool
	Normalize            bool
	MinActors            int
}

// ValidationConfig holds the optional robustness checks
type ValidationConfig struct {
	StabilityIterations int
	TestFraction        float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	clusteringConfig, err := loadClusteringConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load clustering configuration")
	}

	config := &Config{
		Database:   *loadDatabaseConfig(),
		Server:     *loadServerConfig(),
		Clustering: *clusteringConfig,
		Features:   *loadFeatureConfig(),
		Validation: *loadValidationConfig(),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		Driver:  getEnvOrDefault("DATABASE_DRIVER", "postgres"),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadClusteringConfig() (*ClusteringConfig, error) {
	kRange, err := parseIntList(getEnvOrDefault("CLUSTER_K_RANGE", "3,5,7,10"))
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("CLUSTER_K_RANGE: %v", err))
	}
	return &ClusteringConfig{
		Algorithm:    strings.ToLower(getEnvOrDefault("CLUSTER_ALGORITHM", AlgorithmAll)),
		K:            getEnvIntOrDefault("CLUSTER_K", clustering.DefaultK),
		KRange:       kRange,
		Seed:         int64(getEnvIntOrDefault("CLUSTER_SEED", clustering.DefaultSeed)),
		KMeansNInit:  getEnvIntOrDefault("KMEANS_N_INIT", clustering.DefaultKMeansNInit),
		KMeansMaxIt:  getEnvIntOrDefault("KMEANS_MAX_ITER", clustering.DefaultKMeansMaxIt),
		DBSCANEps:    getEnvFloatOrDefault("DBSCAN_EPS", clustering.DefaultDBSCANEps),
		DBSCANMinPts: getEnvIntOrDefault("DBSCAN_MIN_SAMPLES", clustering.DefaultDBSCANMinPts),
		Linkage:      clustering.Linkage(getEnvOrDefault("HIERARCHICAL_LINKAGE", string(clustering.LinkageWard))),
		GMMMaxIter:   getEnvIntOrDefault("GMM_MAX_ITER", clustering.DefaultGMMMaxIter),
	}, nil
}

func loadFeatureConfig() *FeatureConfig {
	return &FeatureConfig{
		IncludeDrivers:       getEnvBoolOrDefault("FEATURE_INCLUDE_DRIVERS", true),
		IncludeContradiction: getEnvBoolOrDefault("FEATURE_INCLUDE_CONTRADICTION", true),
		IncludeQuantum:       getEnvBoolOrDefault("FEATURE_INCLUDE_QUANTUM", true),
		Normalize:            getEnvBoolOrDefault("FEATURE_NORMALIZE", true),
		MinActors:            getEnvIntOrDefault("MIN_ACTORS", 10),
	}
}

func loadValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		StabilityIterations: getEnvIntOrDefault("STABILITY_ITERATIONS", 10),
		TestFraction:        getEnvFloatOrDefault("TEST_FRACTION", 0.2),
	}
}

func validateConfig(config *Config) error {
	c := config.Clustering
	if c.Algorithm != AlgorithmAll {
		if _, err := clustering.ParseAlgorithm(c.Algorithm); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("unknown CLUSTER_ALGORITHM %q", c.Algorithm))
		}
	}
	if c.K < 2 || c.K > 20 {
		return errors.ConfigInvalid(fmt.Sprintf("CLUSTER_K must be between 2 and 20, got %d", c.K))
	}
	for _, k := range c.KRange {
		if k < 2 || k > 20 {
			return errors.ConfigInvalid(fmt.Sprintf("CLUSTER_K_RANGE values must be between 2 and 20, got %d", k))
		}
	}
	if c.DBSCANEps <= 0 || c.DBSCANEps > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("DBSCAN_EPS must be in (0, 1], got %g", c.DBSCANEps))
	}
	if c.DBSCANMinPts < 2 {
		return errors.ConfigInvalid(fmt.Sprintf("DBSCAN_MIN_SAMPLES must be at least 2, got %d", c.DBSCANMinPts))
	}
	switch c.Linkage {
	case clustering.LinkageWard, clustering.LinkageComplete, clustering.LinkageAverage, clustering.LinkageSingle:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown HIERARCHICAL_LINKAGE %q", c.Linkage))
	}

	f := config.Features
	if !f.IncludeDrivers && !f.IncludeContradiction && !f.IncludeQuantum {
		return errors.ConfigInvalid("at least one feature group must be enabled")
	}
	if f.MinActors < 1 {
		return errors.ConfigInvalid("MIN_ACTORS must be positive")
	}

	v := config.Validation
	if v.StabilityIterations < 0 {
		return errors.ConfigInvalid("STABILITY_ITERATIONS must not be negative")
	}
	if v.TestFraction <= 0 || v.TestFraction >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("TEST_FRACTION must be in (0, 1), got %g", v.TestFraction))
	}
	return nil
}

// Params returns the clustering parameters for one algorithm.
func (c ClusteringConfig) Params(alg clustering.Algorithm) clustering.Params {
	p := clustering.DefaultParams(alg)
	p.Seed = c.Seed
	switch alg {
	case clustering.AlgorithmKMeans:
		p.K, p.NInit, p.MaxIter = c.K, c.KMeansNInit, c.KMeansMaxIt
	case clustering.AlgorithmDBSCAN:
		p.Eps, p.MinPts = c.DBSCANEps, c.DBSCANMinPts
	case clustering.AlgorithmHierarchical:
		p.K, p.Linkage = c.K, c.Linkage
	case clustering.AlgorithmGMM:
		p.K, p.MaxIter = c.K, c.GMMMaxIter
	}
	return p
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}
