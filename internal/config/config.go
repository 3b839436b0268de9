package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/retinskiymp/dodebbot/internal/blackjack"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerSettings    `hcl:"server,block"`
	Blackjack BlackjackSettings `hcl:"blackjack,block"`
}

// ServerSettings contains process-level configuration.
type ServerSettings struct {
	Addr         string `hcl:"addr,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	DBPath       string `hcl:"db_path,optional"`
	StartBalance int    `hcl:"start_balance,optional"`
}

// BlackjackSettings tunes the table engine. Durations are in seconds.
type BlackjackSettings struct {
	BetWindowSec    int     `hcl:"bet_window,optional"`
	TurnTimeoutSec  int     `hcl:"turn_timeout,optional"`
	RestartDelaySec int     `hcl:"restart_delay,optional"`
	ResumeDelaySec  int     `hcl:"resume_delay,optional"`
	Microloan       int     `hcl:"microloan,optional"`
	FixedBets       []int   `hcl:"fixed_bets,optional"`
	PercentBets     []int   `hcl:"percent_bets,optional"`
	NotifyRate      float64 `hcl:"notify_rate,optional"`
	NotifyBurst     int     `hcl:"notify_burst,optional"`
}

// Default returns the configuration the service ships with.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Addr:         "localhost:8080",
			LogLevel:     "info",
			DBPath:       "dodebbot.db",
			StartBalance: 100,
		},
		Blackjack: BlackjackSettings{
			BetWindowSec:    10,
			TurnTimeoutSec:  20,
			RestartDelaySec: 15,
			ResumeDelaySec:  5,
			Microloan:       50,
			FixedBets:       []int{50, 100, 200, 300, 500},
			PercentBets:     []int{10, 20, 30, 50, 100},
			NotifyRate:      1,
			NotifyBurst:     5,
		},
	}
}

// Load reads the HCL configuration file, falling back to defaults when the
// file does not exist.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = def.Server.DBPath
	}
	if cfg.Server.StartBalance == 0 {
		cfg.Server.StartBalance = def.Server.StartBalance
	}

	bj := &cfg.Blackjack
	dbj := def.Blackjack
	if bj.BetWindowSec == 0 {
		bj.BetWindowSec = dbj.BetWindowSec
	}
	if bj.TurnTimeoutSec == 0 {
		bj.TurnTimeoutSec = dbj.TurnTimeoutSec
	}
	if bj.RestartDelaySec == 0 {
		bj.RestartDelaySec = dbj.RestartDelaySec
	}
	if bj.ResumeDelaySec == 0 {
		bj.ResumeDelaySec = dbj.ResumeDelaySec
	}
	if bj.Microloan == 0 {
		bj.Microloan = dbj.Microloan
	}
	if len(bj.FixedBets) == 0 {
		bj.FixedBets = dbj.FixedBets
	}
	if len(bj.PercentBets) == 0 {
		bj.PercentBets = dbj.PercentBets
	}
	if bj.NotifyRate == 0 {
		bj.NotifyRate = dbj.NotifyRate
	}
	if bj.NotifyBurst == 0 {
		bj.NotifyBurst = dbj.NotifyBurst
	}
}

// Rules converts the blackjack settings into engine rules.
func (c *Config) Rules() blackjack.Rules {
	bj := c.Blackjack
	return blackjack.Rules{
		BetWindow:    time.Duration(bj.BetWindowSec) * time.Second,
		TurnTimeout:  time.Duration(bj.TurnTimeoutSec) * time.Second,
		RestartDelay: time.Duration(bj.RestartDelaySec) * time.Second,
		ResumeDelay:  time.Duration(bj.ResumeDelaySec) * time.Second,
		Microloan:    bj.Microloan,
		FixedBets:    bj.FixedBets,
		PercentBets:  bj.PercentBets,
	}
}
