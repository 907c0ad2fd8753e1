package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/yanivhq/yaniv-server/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Rules  RulesConfig    `hcl:"rules,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	Seed     int64  `hcl:"seed,optional"`
}

// RulesConfig carries the default room rules applied when players don't
// vote otherwise.
type RulesConfig struct {
	SlapDown       *bool `hcl:"slap_down,optional"`
	TimePerPlayer  int   `hcl:"time_per_player,optional"`
	CanCallYaniv   int   `hcl:"can_call_yaniv,optional"`
	MaxMatchPoints int   `hcl:"max_match_points,optional"`
	MaxPlayers     int   `hcl:"max_players,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	slapDown := true
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Rules: RulesConfig{
			SlapDown:       &slapDown,
			TimePerPlayer:  15,
			CanCallYaniv:   7,
			MaxMatchPoints: 100,
			MaxPlayers:     4,
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Rules.SlapDown == nil {
		slapDown := true
		config.Rules.SlapDown = &slapDown
	}
	if config.Rules.TimePerPlayer == 0 {
		config.Rules.TimePerPlayer = 15
	}
	if config.Rules.CanCallYaniv == 0 {
		config.Rules.CanCallYaniv = 7
	}
	if config.Rules.MaxMatchPoints == 0 {
		config.Rules.MaxMatchPoints = 100
	}
	if config.Rules.MaxPlayers == 0 {
		config.Rules.MaxPlayers = 4
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Rules.TimePerPlayer < 5 || c.Rules.TimePerPlayer > 120 {
		return fmt.Errorf("time per player must be between 5 and 120 seconds, got %d", c.Rules.TimePerPlayer)
	}
	if c.Rules.CanCallYaniv < 1 {
		return fmt.Errorf("yaniv threshold must be positive, got %d", c.Rules.CanCallYaniv)
	}
	if c.Rules.MaxMatchPoints < c.Rules.CanCallYaniv {
		return fmt.Errorf("max match points %d below yaniv threshold %d", c.Rules.MaxMatchPoints, c.Rules.CanCallYaniv)
	}
	if c.Rules.MaxPlayers < 2 || c.Rules.MaxPlayers > 8 {
		return fmt.Errorf("max players must be between 2 and 8, got %d", c.Rules.MaxPlayers)
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the rule defaults into a room config
func (c *ServerConfig) GameConfig() game.Config {
	return game.Config{
		SlapDown:       *c.Rules.SlapDown,
		TimePerPlayer:  c.Rules.TimePerPlayer,
		CanCallYaniv:   c.Rules.CanCallYaniv,
		MaxMatchPoints: c.Rules.MaxMatchPoints,
	}
}
