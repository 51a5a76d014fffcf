package ndvi

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldcare/fieldcare-backend/internal/clients/scihub"
	"github.com/fieldcare/fieldcare-backend/internal/clients/sentinelhub"
	"github.com/fieldcare/fieldcare-backend/internal/clients/stac"
	"github.com/fieldcare/fieldcare-backend/internal/platform/envutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// DefaultSourceOrder lists free sources first, then credentialed ones.
var DefaultSourceOrder = []string{SourcePlanetaryComputer, SourceEarthSearch, SourceSciHub, SourceSentinelHub}

type SourceSpec struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	TokenURL string `yaml:"token_url"`
	SASURL   string `yaml:"sas_url"`
	Disabled bool   `yaml:"disabled"`
}

type SourcesConfig struct {
	Sources []SourceSpec `yaml:"sources"`

	PlanetaryComputerKey string        `yaml:"-"`
	SciHubUsername       string        `yaml:"-"`
	SciHubPassword       string        `yaml:"-"`
	SentinelHubClientID  string        `yaml:"-"`
	SentinelHubSecret    string        `yaml:"-"`
	HTTPTimeout          time.Duration `yaml:"-"`
}

// LoadSourcesConfig reads the ordered source list from NDVI_SOURCES_FILE
// when set, else from NDVI_SOURCES. Credentials always come from the
// environment.
func LoadSourcesConfig() (SourcesConfig, error) {
	cfg := SourcesConfig{
		PlanetaryComputerKey: envutil.String("PC_SUBSCRIPTION_KEY", ""),
		SciHubUsername:       envutil.String("SCIHUB_USERNAME", ""),
		SciHubPassword:       envutil.String("SCIHUB_PASSWORD", ""),
		SentinelHubClientID:  envutil.String("SENTINELHUB_CLIENT_ID", ""),
		SentinelHubSecret:    envutil.String("SENTINELHUB_CLIENT_SECRET", ""),
		HTTPTimeout:          envutil.Duration("NDVI_HTTP_TIMEOUT", 30*time.Second),
	}
	if path := envutil.String("NDVI_SOURCES_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		specs, err := ParseSourceSpecs(raw)
		if err != nil {
			return cfg, err
		}
		cfg.Sources = specs
		return cfg, nil
	}
	for _, name := range envutil.List("NDVI_SOURCES", DefaultSourceOrder) {
		cfg.Sources = append(cfg.Sources, SourceSpec{Name: strings.ToLower(strings.TrimSpace(name))})
	}
	return cfg, nil
}

func ParseSourceSpecs(raw []byte) ([]SourceSpec, error) {
	var doc struct {
		Sources []SourceSpec `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ndvi sources YAML: %w", err)
	}
	seen := map[string]bool{}
	for i := range doc.Sources {
		name := strings.ToLower(strings.TrimSpace(doc.Sources[i].Name))
		if name == "" {
			return nil, fmt.Errorf("ndvi sources: entry %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("ndvi sources: duplicate %q", name)
		}
		seen[name] = true
		doc.Sources[i].Name = name
	}
	return doc.Sources, nil
}

// BuildSources instantiates adapters in configured order. Credentialed
// adapters without credentials are skipped.
func BuildSources(log *logger.Logger, cfg SourcesConfig) ([]Source, error) {
	if log == nil {
		log = logger.Nop()
	}
	var out []Source
	for _, spec := range cfg.Sources {
		if spec.Disabled {
			continue
		}
		switch spec.Name {
		case SourcePlanetaryComputer:
			c, err := stac.New(log, stac.Config{
				BaseURL:         orDefault(spec.BaseURL, stac.PlanetaryComputerURL),
				SASURL:          orDefault(spec.SASURL, stac.PlanetaryComputerSAS),
				SubscriptionKey: cfg.PlanetaryComputerKey,
				Timeout:         cfg.HTTPTimeout,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, NewPlanetaryComputerSource(log, c))
		case SourceEarthSearch:
			c, err := stac.New(log, stac.Config{
				BaseURL: orDefault(spec.BaseURL, stac.EarthSearchURL),
				SASURL:  spec.SASURL,
				Timeout: cfg.HTTPTimeout,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, NewEarthSearchSource(log, c))
		case SourceSciHub:
			if cfg.SciHubUsername == "" || cfg.SciHubPassword == "" {
				log.Info("ndvi source skipped: missing credentials", "source", spec.Name)
				continue
			}
			c, err := scihub.New(log, scihub.Config{
				BaseURL:  spec.BaseURL,
				Username: cfg.SciHubUsername,
				Password: cfg.SciHubPassword,
				Timeout:  cfg.HTTPTimeout,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, NewSciHubSource(log, c))
		case SourceSentinelHub:
			if cfg.SentinelHubClientID == "" || cfg.SentinelHubSecret == "" {
				log.Info("ndvi source skipped: missing credentials", "source", spec.Name)
				continue
			}
			c, err := sentinelhub.New(log, sentinelhub.Config{
				BaseURL:      spec.BaseURL,
				TokenURL:     spec.TokenURL,
				ClientID:     cfg.SentinelHubClientID,
				ClientSecret: cfg.SentinelHubSecret,
				Timeout:      cfg.HTTPTimeout,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, NewSentinelHubSource(log, c))
		default:
			return nil, fmt.Errorf("unknown ndvi source %q", spec.Name)
		}
	}
	return out, nil
}

// LoadPipelineConfig reads pipeline tuning from the environment.
func LoadPipelineConfig() Config {
	return Config{
		SourceTimeout:    envutil.Duration("NDVI_SOURCE_TIMEOUT", 20*time.Second),
		DefaultLag:       envutil.Duration("NDVI_DEFAULT_LAG", 7*24*time.Hour),
		CacheTTL:         envutil.Duration("NDVI_CACHE_TTL", 6*time.Hour),
		BatchConcurrency: envutil.Int("NDVI_BATCH_CONCURRENCY", 4),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
