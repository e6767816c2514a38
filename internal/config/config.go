package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Config is the merged global-rules + project configuration.
// Every section is optional in the YAML; absent sections fall back to the
// defaults documented on each field, so a sparse config degrades to "fewer
// opportunities", never to an error.
type Config struct {
	Site           Site                `yaml:"site"`
	API            API                 `yaml:"api"`
	Crawl          Crawl               `yaml:"crawl"`
	KnowledgeGraph KnowledgeGraph      `yaml:"knowledge_graph"`
	AnchorPools    map[string][]string `yaml:"anchor_pools"`
	AnchorRules    AnchorRules         `yaml:"anchor_rules"`
	PermitRules    PermitRules         `yaml:"permit_rules"`
	Limits         Limits              `yaml:"limits"`
	Scoring        Scoring             `yaml:"scoring"`
	Campaigns      Campaigns           `yaml:"active_campaigns"`
	Exclusions     Exclusions          `yaml:"exclusions"`
	Placement      Placement           `yaml:"placement"`
	Server         Server              `yaml:"server"`
	Output         Output              `yaml:"output"`
}

// Site identifies the WordPress site under analysis.
type Site struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// API holds WordPress REST credentials. Writes require an application
// password; crawling works unauthenticated on most sites.
type API struct {
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
	Mode        string `yaml:"mode"` // "read_only" or "read_write"
}

// Crawl bounds the crawl.
type Crawl struct {
	MaxItems     int  `yaml:"max_items"`     // default 500
	FeedFallback bool `yaml:"feed_fallback"` // discover posts via /feed/ when REST is blocked
}

// KnowledgeGraph describes the site's known target pages.
type KnowledgeGraph struct {
	ServiceHubs   []ServiceHub  `yaml:"service_hubs"`
	Materials     []Material    `yaml:"materials"`
	AuthorityHubs AuthorityHubs `yaml:"authority_hubs"`
}

// ServiceHub is a core service ("money") page and the keywords that should
// attract links to it. Name doubles as the anchor-pool category key.
type ServiceHub struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	Title    string   `yaml:"title"`
	Priority int      `yaml:"priority"`
	Keywords []string `yaml:"keywords"`
}

// Material is a product or material page.
type Material struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AuthorityHubs holds the permit hub and its city-specific permit pages.
type AuthorityHubs struct {
	PermitHub   *PermitHub   `yaml:"permit_hub"`
	PermitPages []PermitPage `yaml:"permit_pages"`
}

// PermitHub is the central permit authority page.
type PermitHub struct {
	URL        string `yaml:"url"`
	Title      string `yaml:"title"`
	Priority   int    `yaml:"priority"`
	CentralHub bool   `yaml:"is_central_hub"`
}

// PermitPage is a city-specific permit page selected by geo-context.
type PermitPage struct {
	URL      string   `yaml:"url"`
	City     string   `yaml:"city"`
	GeoTerms []string `yaml:"geo_terms"`
}

// AnchorRules governs anchor-text safety.
type AnchorRules struct {
	MinLength           int     `yaml:"min_anchor_length"`    // default 10
	MaxLength           int     `yaml:"max_anchor_length"`    // default 50
	SimilarityThreshold float64 `yaml:"similarity_threshold"` // default 0.85
	NoExactMatchTitle   bool    `yaml:"no_exact_match_target_title"`
	NoExactMatchKeyword bool    `yaml:"no_exact_match_primary_keyword"`
	RotationMemory      int     `yaml:"rotation_memory"` // default 3
}

// PermitRules governs permit-link placement.
type PermitRules struct {
	AllowedSources     []string `yaml:"allowed_sources"` // default blog, money_page, project
	NoPermitToPermit   bool     `yaml:"no_permit_to_permit"`
	HubURL             string   `yaml:"hub_url"`
	RequiresGeoContext bool     `yaml:"permit_link_requires_geo_context"`
	GeoContextTerms    []string `yaml:"geo_context_terms"`
	HubPriority        bool     `yaml:"hub_priority"` // fall back to the hub when no geo term matches
}

// Limits caps link insertion per page.
type Limits struct {
	MaxLinksPerPage       int `yaml:"max_links_per_page"`        // default 2
	MaxPermitLinksPerPage int `yaml:"max_permit_links_per_page"` // default 1
}

// Scoring holds the opportunity scoring weights and thresholds.
type Scoring struct {
	Weights    Weights    `yaml:"weights"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// Weights are the per-factor scoring weights.
type Weights struct {
	TopicalRelevance  float64 `yaml:"topical_relevance"`
	PageAuthority     float64 `yaml:"page_authority"`
	ContentAge        float64 `yaml:"content_age"`
	ExistingLinkCount float64 `yaml:"existing_link_count"`
	CampaignAlignment float64 `yaml:"campaign_alignment"` // default 0.20
}

// Thresholds gate which opportunities surface.
type Thresholds struct {
	MinScoreToSuggest float64 `yaml:"min_score_to_suggest"` // default 0.60
}

// Campaigns marks the currently promoted services. Matching is
// case-insensitive substring containment over the target URL, so keep
// campaign names specific enough to not collide with unrelated slugs.
type Campaigns struct {
	Primary         string  `yaml:"primary"`
	Secondary       string  `yaml:"secondary"`
	BoostMultiplier float64 `yaml:"boost_multiplier"` // default 1.5
}

// Exclusions lists pages the analysis must never touch.
type Exclusions struct {
	URLs     []string `yaml:"urls"`
	Patterns []string `yaml:"patterns"` // shell-style globs against the normalized path
}

// Placement restricts where anchors may be injected.
type Placement struct {
	ForbiddenTags []string `yaml:"forbidden_locations"`
	CTAPatterns   []string `yaml:"cta_patterns"`
}

// Server configures the dashboard.
type Server struct {
	Port     int `yaml:"port"`
	CacheTTL int `yaml:"cache_ttl_seconds"` // default 900
}

// Output configures report and database locations.
type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for linkscout.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "linkscout")
}

// DataDir returns the XDG data directory for linkscout.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "linkscout")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/linkscout/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'linkscout init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// LoadProject loads the global config and layers a project file over it.
// Project values win; sections absent from the project file keep the
// global (or default) values.
func LoadProject(globalPath, projectPath string) (*Config, error) {
	cfg, err := Load(globalPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing project config: %w", err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config populated with the documented defaults.
func Defaults() *Config {
	return &Config{
		API: API{Mode: "read_only"},
		Crawl: Crawl{
			MaxItems:     500,
			FeedFallback: true,
		},
		AnchorRules: AnchorRules{
			MinLength:           10,
			MaxLength:           50,
			SimilarityThreshold: 0.85,
			NoExactMatchTitle:   true,
			NoExactMatchKeyword: true,
			RotationMemory:      3,
		},
		PermitRules: PermitRules{
			AllowedSources:     []string{"blog", "money_page", "project"},
			NoPermitToPermit:   true,
			HubURL:             "/service-areas-map/",
			RequiresGeoContext: true,
			HubPriority:        true,
		},
		Limits: Limits{
			MaxLinksPerPage:       2,
			MaxPermitLinksPerPage: 1,
		},
		Scoring: Scoring{
			Weights: Weights{
				TopicalRelevance:  0.30,
				PageAuthority:     0.20,
				ContentAge:        0.15,
				ExistingLinkCount: 0.15,
				CampaignAlignment: 0.20,
			},
			Thresholds: Thresholds{MinScoreToSuggest: 0.60},
		},
		Campaigns: Campaigns{BoostMultiplier: 1.5},
		Placement: Placement{
			ForbiddenTags: []string{"h1", "h2", "h3", "h4", "h5", "h6", "title", "figcaption", "nav", "footer", "button"},
		},
		Server: Server{
			Port:     8000,
			CacheTTL: 900,
		},
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// ServiceHubByName returns the configured hub with the given name, or nil.
func (c *Config) ServiceHubByName(name string) *ServiceHub {
	for i := range c.KnowledgeGraph.ServiceHubs {
		if c.KnowledgeGraph.ServiceHubs[i].Name == name {
			return &c.KnowledgeGraph.ServiceHubs[i]
		}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
