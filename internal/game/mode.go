package game

import (
	"fmt"
	"strings"
)

// Mode selects who plays white.
type Mode int

const (
	ModePvP Mode = iota // two humans sharing the terminal
	ModeAI              // human against the engine
)

func (m Mode) String() string {
	switch m {
	case ModePvP:
		return "pvp"
	case ModeAI:
		return "ai"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "pvp" or "ai", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pvp":
		return ModePvP, nil
	case "ai":
		return ModeAI, nil
	}
	return 0, fmt.Errorf("unknown game mode %q (want pvp or ai)", s)
}
