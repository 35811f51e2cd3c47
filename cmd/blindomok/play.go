package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/blindomok/cmd/blindomok/shared"
	"github.com/lox/blindomok/internal/bot"
	"github.com/lox/blindomok/internal/config"
	"github.com/lox/blindomok/internal/game"
	"github.com/lox/blindomok/internal/tui"
)

type PlayCmd struct {
	Config   string `kong:"default='blindomok.hcl',help='HCL configuration file (defaults apply if missing)'"`
	Mode     string `kong:"default='',help='Game mode: pvp or ai (overrides config)'"`
	AIPlayer string `kong:"name='ai-player',default='',help='Colour played by the AI (overrides config)'"`
	Depth    int    `kong:"default='0',help='AI search depth in plies (overrides config)'"`
	LogLevel string `kong:"name='log-level',default='',help='Log level (overrides config)'"`
	LogFile  string `kong:"name='log-file',default='',help='Log file (overrides config)'"`
}

func (c *PlayCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, closer, err := shared.SetupLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		return err
	}

	var chooser game.MoveChooser
	if sessionCfg.Mode == game.ModeAI {
		engine := bot.NewEngine(logger, cfg.AI.Depth)
		logger.Debug("AI engine ready", "player", sessionCfg.AIPlayer, "depth", engine.Depth())
		chooser = engine
	}

	session, err := game.NewSession(sessionCfg, chooser, nil, quartz.NewReal(), logger)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	logger.Info("Starting game", "game_id", session.ID(), "mode", sessionCfg.Mode)

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	model := tui.New(session, tui.Options{CaptionDuration: cfg.CaptionDuration()}, logger)
	defer model.Close()

	session.Start(ctx)
	defer func() { _ = session.EndGame() }()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui exited: %w", err)
	}
	return nil
}

func (c *PlayCmd) applyOverrides(cfg *config.Config) {
	if c.Mode != "" {
		cfg.Game.Mode = c.Mode
	}
	if c.AIPlayer != "" {
		cfg.Game.AIPlayer = c.AIPlayer
	}
	if c.Depth > 0 {
		cfg.AI.Depth = c.Depth
	}
	if c.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(c.LogLevel)
	}
	if c.LogFile != "" {
		cfg.Log.File = c.LogFile
	}
}
