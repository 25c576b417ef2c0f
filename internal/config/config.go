// Package config reads the server settings from the environment (optionally
// seeded from a .env file) and the auction rules from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

type Config struct {
	Addr        string
	Env         string
	LogLevel    string
	CatalogPath string
	RulesPath   string
	ExportFile  string

	DatabaseURL string
	DBMaxConns  int

	TeamCount      int
	TeamNames      []string
	TeamBudget     int64
	RosterCap      int
	SetCount       int
	HistoryDepth   int
	MinCatalogSize int

	Rules RulesFile
}

// Load reads .env if present, then the environment, then the rules file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	c := Config{
		Addr:        getenv("ADDR", ":8080"),
		Env:         getenv("APP_ENV", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		CatalogPath: getenv("CATALOG_PATH", "data/catalog.csv"),
		RulesPath:   os.Getenv("RULES_PATH"),
		ExportFile:  os.Getenv("EXPORT_FILE"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if names := os.Getenv("TEAM_NAMES"); names != "" {
		for _, n := range strings.Split(names, ",") {
			c.TeamNames = append(c.TeamNames, strings.TrimSpace(n))
		}
	}

	var err error
	if c.DBMaxConns, err = getint("DB_MAX_CONNS", 4); err != nil {
		return Config{}, err
	}
	if c.TeamCount, err = getint("TEAM_COUNT", 6); err != nil {
		return Config{}, err
	}
	if c.RosterCap, err = getint("ROSTER_CAP", 8); err != nil {
		return Config{}, err
	}
	if c.SetCount, err = getint("SET_COUNT", 3); err != nil {
		return Config{}, err
	}
	if c.HistoryDepth, err = getint("HISTORY_DEPTH", 50); err != nil {
		return Config{}, err
	}
	if c.MinCatalogSize, err = getint("MIN_CATALOG_SIZE", 72); err != nil {
		return Config{}, err
	}
	budget, err := getint("TEAM_BUDGET", 100_000_000)
	if err != nil {
		return Config{}, err
	}
	c.TeamBudget = int64(budget)

	if c.Rules, err = LoadRules(c.RulesPath); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings that engine.Rules does not cover itself.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("ADDR is required")
	}
	if c.CatalogPath == "" {
		return errors.New("CATALOG_PATH is required")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1, got %d", c.DBMaxConns)
	}
	if c.MinCatalogSize < 0 {
		return fmt.Errorf("MIN_CATALOG_SIZE must be >= 0, got %d", c.MinCatalogSize)
	}
	if len(c.TeamNames) > 0 && len(c.TeamNames) != c.TeamCount {
		return fmt.Errorf("TEAM_NAMES lists %d names for %d teams", len(c.TeamNames), c.TeamCount)
	}
	if err := c.AuctionRules().Validate(); err != nil {
		return fmt.Errorf("auction rules: %w", err)
	}
	return nil
}

func (c Config) AuctionRules() engine.Rules {
	table := c.Rules.Synergy
	return engine.Rules{
		TeamCount:    c.TeamCount,
		TeamNames:    c.TeamNames,
		Budget:       c.TeamBudget,
		RosterCap:    c.RosterCap,
		SetCount:     c.SetCount,
		HistoryDepth: c.HistoryDepth,
		Tiers:        c.Rules.Increments.Tiers,
		MaxStep:      c.Rules.Increments.MaxStep,
		Synergy:      &table,
	}
}

func (c Config) IsProduction() bool { return c.Env == "production" }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(v, "_", ""))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}
