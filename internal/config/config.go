// Package config loads blind omok settings from an HCL file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blindomok/internal/board"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/game"
)

// Config represents the complete configuration. Every block is optional in
// the file; after loading all of them are set.
type Config struct {
	Game   *GameSettings   `hcl:"game,block"`
	AI     *AISettings     `hcl:"ai,block"`
	Replay *ReplaySettings `hcl:"replay,block"`
	Log    *LogSettings    `hcl:"log,block"`
}

// GameSettings contains the rules of play
type GameSettings struct {
	Mode                   string `hcl:"mode,optional"`
	TurnSeconds            int    `hcl:"turn_seconds,optional"`
	OccupiedPenaltySeconds *int   `hcl:"occupied_penalty_seconds,optional"`
	AIPlayer               string `hcl:"ai_player,optional"`
}

// AISettings tunes the engine and how its moves are shown
type AISettings struct {
	Depth        int  `hcl:"depth,optional"`
	ThinkDelayMS *int `hcl:"think_delay_ms,optional"`
	RevealMS     *int `hcl:"reveal_ms,optional"`
	MaxRetries   int  `hcl:"max_retries,optional"`
}

// ReplaySettings controls replay pacing
type ReplaySettings struct {
	IntervalMS int `hcl:"interval_ms,optional"`
	CaptionMS  int `hcl:"caption_ms,optional"`
}

// LogSettings controls where logs go. The terminal belongs to the UI, so
// logs are written to a file.
type LogSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

const (
	defaultMode           = "ai"
	defaultTurnSeconds    = 120
	defaultPenaltySeconds = 30
	defaultAIPlayer       = "white"
	defaultThinkDelayMS   = 1000
	defaultRevealMS       = 2000
	defaultMaxRetries     = 8
	defaultIntervalMS     = 1000
	defaultCaptionMS      = 900
	defaultLogLevel       = "info"
	defaultLogFile        = "blindomok.log"
)

// Default returns the default configuration
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads configuration from an HCL file. A missing file yields the
// defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var c Config
	diags = gohcl.DecodeBody(file.Body, nil, &c)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Game == nil {
		c.Game = &GameSettings{}
	}
	if c.AI == nil {
		c.AI = &AISettings{}
	}
	if c.Replay == nil {
		c.Replay = &ReplaySettings{}
	}
	if c.Log == nil {
		c.Log = &LogSettings{}
	}

	if c.Game.Mode == "" {
		c.Game.Mode = defaultMode
	}
	if c.Game.TurnSeconds == 0 {
		c.Game.TurnSeconds = defaultTurnSeconds
	}
	if c.Game.OccupiedPenaltySeconds == nil {
		c.Game.OccupiedPenaltySeconds = intPtr(defaultPenaltySeconds)
	}
	if c.Game.AIPlayer == "" {
		c.Game.AIPlayer = defaultAIPlayer
	}

	if c.AI.Depth == 0 {
		c.AI.Depth = bot.DefaultDepth
	}
	if c.AI.ThinkDelayMS == nil {
		c.AI.ThinkDelayMS = intPtr(defaultThinkDelayMS)
	}
	if c.AI.RevealMS == nil {
		c.AI.RevealMS = intPtr(defaultRevealMS)
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = defaultMaxRetries
	}

	if c.Replay.IntervalMS == 0 {
		c.Replay.IntervalMS = defaultIntervalMS
	}
	if c.Replay.CaptionMS == 0 {
		c.Replay.CaptionMS = defaultCaptionMS
	}

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.File == "" {
		c.Log.File = defaultLogFile
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := game.ParseMode(c.Game.Mode); err != nil {
		return err
	}
	if _, err := parsePlayer(c.Game.AIPlayer); err != nil {
		return err
	}
	if c.Game.TurnSeconds < 1 {
		return fmt.Errorf("turn_seconds must be positive: %d", c.Game.TurnSeconds)
	}
	if *c.Game.OccupiedPenaltySeconds < 0 {
		return fmt.Errorf("occupied_penalty_seconds must not be negative: %d", *c.Game.OccupiedPenaltySeconds)
	}
	if c.AI.Depth < 1 || c.AI.Depth > 6 {
		return fmt.Errorf("ai depth must be between 1 and 6: %d", c.AI.Depth)
	}
	if *c.AI.ThinkDelayMS < 0 || *c.AI.RevealMS < 0 {
		return errors.New("ai delays must not be negative")
	}
	if c.AI.MaxRetries < 1 {
		return fmt.Errorf("ai max_retries must be positive: %d", c.AI.MaxRetries)
	}
	if c.Replay.IntervalMS < 1 || c.Replay.CaptionMS < 1 {
		return errors.New("replay durations must be positive")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// SessionConfig converts the settings into the session's rules of play.
func (c *Config) SessionConfig() (game.SessionConfig, error) {
	mode, err := game.ParseMode(c.Game.Mode)
	if err != nil {
		return game.SessionConfig{}, err
	}
	aiPlayer, err := parsePlayer(c.Game.AIPlayer)
	if err != nil {
		return game.SessionConfig{}, err
	}
	return game.SessionConfig{
		Mode:           mode,
		AIPlayer:       aiPlayer,
		TurnSeconds:    c.Game.TurnSeconds,
		PenaltySeconds: *c.Game.OccupiedPenaltySeconds,
		ThinkDelay:     millis(*c.AI.ThinkDelayMS),
		RevealDuration: millis(*c.AI.RevealMS),
		MaxAIRetries:   c.AI.MaxRetries,
		ReplayInterval: millis(c.Replay.IntervalMS),
	}, nil
}

// CaptionDuration is how long a replay caption stays on screen.
func (c *Config) CaptionDuration() time.Duration {
	return millis(c.Replay.CaptionMS)
}

func parsePlayer(s string) (board.Player, error) {
	switch strings.ToLower(s) {
	case "black":
		return board.Black, nil
	case "white":
		return board.White, nil
	}
	return board.Empty, fmt.Errorf("invalid ai_player %q (want black or white)", s)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func intPtr(v int) *int {
	return &v
}
