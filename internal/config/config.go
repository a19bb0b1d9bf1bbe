package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"go.uber.org/zap/zapcore"

	"github.com/jaminalder/reversi/internal/bot"
	"github.com/jaminalder/reversi/internal/domain"
)

var (
	cfgFile = "reversi/config.json"
)

type InvalidConfig struct {
	err string
}

func (e *InvalidConfig) Error() string {
	return fmt.Sprintf("config error: %s", e.err)
}

// BoardConfig describes the games the arena sets up.
type BoardConfig struct {
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
	Players int    `json:"players"`
	Variant string `json:"variant"`
}

// ArenaConfig drives bot-vs-bot runs. Strategies[i] plays as player i+1.
type ArenaConfig struct {
	Games      int      `json:"games"`
	Strategies []string `json:"strategies"`
	Seed       int64    `json:"seed"`
	Depth      int      `json:"depth"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type Config struct {
	Board BoardConfig `json:"board"`
	Arena ArenaConfig `json:"arena"`
	Log   LogConfig   `json:"log"`
}

// InitConfig starts from DefaultConfig and overlays the user's config file,
// if one exists in the XDG config directories.
func InitConfig() (*Config, error) {
	absPath, err := xdg.SearchConfigFile(cfgFile)
	if err != nil {
		config := DefaultConfig()
		return &config, nil
	}
	return Load(absPath)
}

// Load reads the config file at path over DefaultConfig and validates it.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if err := readCfgFile(path, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the board against the game rules and the arena seats
// against the strategy registry.
func (c *Config) Validate() error {
	variant, err := domain.ParseVariant(c.Board.Variant)
	if err != nil {
		return &InvalidConfig{err.Error()}
	}
	if _, err := domain.New(c.Board.Rows, c.Board.Cols, c.Board.Players, domain.WithVariant(variant)); err != nil {
		return &InvalidConfig{err.Error()}
	}
	if c.Arena.Games < 1 {
		return &InvalidConfig{"arena.games must be positive"}
	}
	if c.Arena.Depth < 0 {
		return &InvalidConfig{"arena.depth must not be negative"}
	}
	if len(c.Arena.Strategies) != c.Board.Players {
		return &InvalidConfig{fmt.Sprintf("%d strategies for %d players", len(c.Arena.Strategies), c.Board.Players)}
	}
	for _, name := range c.Arena.Strategies {
		if !bot.Known(name) {
			return &InvalidConfig{fmt.Sprintf("unknown strategy %q, want one of %s or %s<file>", name, strings.Join(bot.Names(), ", "), bot.ScriptPrefix)}
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return &InvalidConfig{err.Error()}
	}
	return nil
}

// Save writes c to the user's XDG config directory.
func (c *Config) Save() error {
	absPath, err := xdg.ConfigFile(cfgFile)
	if err != nil {
		return err
	}
	return saveCfgFile(absPath, c, 0664)
}

func saveCfgFile(filePath string, a interface{}, perm fs.FileMode) error {
	jsonData, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, jsonData, perm)
}

// readCfgFile leaves a untouched when filePath does not exist.
func readCfgFile(filePath string, a interface{}) error {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return &InvalidConfig{fmt.Sprintf("%s: %v", filePath, err)}
	}
	return nil
}
