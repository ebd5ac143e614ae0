package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"IndexWatch/internal/model"
)

// IndexEntry is one index inside a display group.
type IndexEntry struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Group is a display category of indices.
type Group struct {
	Name    string       `yaml:"name"`
	Indices []IndexEntry `yaml:"indices"`
}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Data struct {
		StateFile  string `yaml:"state_file"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"data"`
	Source struct {
		TushareToken string `yaml:"tushare_token"`
	} `yaml:"source"`
	Cache struct {
		TTLMinutes int `yaml:"ttl_minutes"`
	} `yaml:"cache"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Proxy  string  `yaml:"proxy"`
	Groups []Group `yaml:"groups"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides, then fills defaults. A missing file is fine; the built-in index
// groups cover the stock setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TUSHARE_TOKEN"); v != "" {
		cfg.Source.TushareToken = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Data.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Data.SQLitePath = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}

	// Defaults
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Data.StateFile == "" {
		cfg.Data.StateFile = "data/stock_strategy_data.json"
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 10
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */10 * * * *"
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = defaultGroups()
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Cache.TTLMinutes < 0 {
		return fmt.Errorf("cache.ttl_minutes must not be negative")
	}
	seen := make(map[string]bool)
	for _, g := range c.Groups {
		for _, idx := range g.Indices {
			if idx.Name == "" || idx.Code == "" {
				return fmt.Errorf("group %q: index entries need both name and code", g.Name)
			}
			if seen[idx.Name] {
				return fmt.Errorf("duplicate index name %q", idx.Name)
			}
			seen[idx.Name] = true
		}
	}
	return nil
}

// CacheTTL returns the metrics cache window as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// Descriptors flattens the groups into routing descriptors, classifying each
// index once here rather than per fetch.
func (c *Config) Descriptors() []model.IndexDescriptor {
	var out []model.IndexDescriptor
	for _, g := range c.Groups {
		for _, idx := range g.Indices {
			out = append(out, model.IndexDescriptor{
				Name:     idx.Name,
				Code:     idx.Code,
				Group:    g.Name,
				Category: model.Classify(idx.Name, idx.Code),
			})
		}
	}
	return out
}

// IndexNames returns every configured display name.
func (c *Config) IndexNames() []string {
	var names []string
	for _, g := range c.Groups {
		for _, idx := range g.Indices {
			names = append(names, idx.Name)
		}
	}
	return names
}

func defaultGroups() []Group {
	return []Group{
		{
			Name: "核心宽基",
			Indices: []IndexEntry{
				{Name: "上证指数", Code: "sh000001"},
				{Name: "创业板指", Code: "sz399006"},
				{Name: "沪深300", Code: "sh000300"},
				{Name: "中证500", Code: "sh000905"},
				{Name: "上证50", Code: "sh000016"},
				{Name: "中证1000", Code: "sh000852"},
			},
		},
		{
			Name: "行业板块",
			Indices: []IndexEntry{
				{Name: "中证红利", Code: "sh000922"},
				{Name: "中证医疗", Code: "sz399989"},
				{Name: "全指医药", Code: "sh000991"},
				{Name: "全指消费", Code: "sh000990"},
				{Name: "中证消费", Code: "sh000932"},
				{Name: "全指信息", Code: "sh000993"},
				{Name: "中证传媒", Code: "sz399971"},
				{Name: "食品饮料", Code: "sz399396"},
				{Name: "中证军工", Code: "sz399967"},
				{Name: "中概互联", Code: "H30533"},
			},
		},
		{
			Name: "全球市场",
			Indices: []IndexEntry{
				{Name: "恒生指数", Code: "hkHSI"},
				{Name: "恒生科技", Code: "hkHSTECH"},
				{Name: "恒生医疗", Code: "hkHSHCI"},
				{Name: "标普500", Code: "gb.INX"},
				{Name: "纳指100", Code: "gb.NDX"},
			},
		},
	}
}
