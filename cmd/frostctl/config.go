package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/frostctl/internal/config"
	"github.com/danmuck/frostctl/internal/device"
	"github.com/danmuck/frostctl/internal/logging"
	"github.com/danmuck/frostctl/internal/transport"
	"github.com/rs/zerolog"
)

type fileConfig struct {
	DeviceAddr   string   `toml:"device_addr"`
	Generation   string   `toml:"generation"`
	Path         string   `toml:"path"`
	ChunkSize    int      `toml:"chunk_size"`
	DialTimeout  string   `toml:"dial_timeout"`
	DialAttempts int      `toml:"dial_attempts"`
	ReadTimeout  string   `toml:"read_timeout"`
	WriteTimeout string   `toml:"write_timeout"`
	LogLevel     string   `toml:"log_level"`
	BridgeAddr   string   `toml:"bridge_addr"`
	BridgeWrite  bool     `toml:"bridge_write"`
	BridgeToken  string   `toml:"bridge_token"`
	CorsOrigins  []string `toml:"cors_origins"`
}

// settings is the resolved CLI configuration.
type settings struct {
	DeviceAddr string
	Generation device.Generation
	Path       string
	Transport  transport.Config
	LogLevel   zerolog.Level
	Bridge     config.BridgeConfig
}

func defaultSettings() settings {
	gen := device.Paged()
	return settings{
		DeviceAddr: "127.0.0.1:9999",
		Generation: gen,
		Path:       gen.ContextPath,
		Transport:  transport.DefaultConfig(),
		LogLevel:   zerolog.InfoLevel,
		Bridge: config.BridgeConfig{
			Name: "frostctl",
			Addr: "127.0.0.1:9400",
		},
	}
}

func loadSettings(path string) (settings, error) {
	cfg := defaultSettings()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load frostctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return settings{}, fmt.Errorf("load frostctl config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("device_addr") {
		cfg.DeviceAddr = strings.TrimSpace(raw.DeviceAddr)
	}
	if meta.IsDefined("generation") {
		gen, err := device.GenerationByName(raw.Generation)
		if err != nil {
			return settings{}, err
		}
		cfg.Generation = gen
		cfg.Path = gen.ContextPath
	}
	if meta.IsDefined("path") {
		cfg.Path = strings.TrimSpace(raw.Path)
	}
	if meta.IsDefined("chunk_size") {
		cfg.Generation.ChunkSize = raw.ChunkSize
	}
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"dial_timeout", raw.DialTimeout, &cfg.Transport.DialTimeout},
		{"read_timeout", raw.ReadTimeout, &cfg.Transport.ReadTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.Transport.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return settings{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("dial_attempts") {
		cfg.Transport.DialAttempts = raw.DialAttempts
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return settings{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.LogLevel = lvl
	}
	if meta.IsDefined("bridge_addr") {
		cfg.Bridge.Addr = strings.TrimSpace(raw.BridgeAddr)
	}
	if meta.IsDefined("bridge_write") {
		cfg.Bridge.Write = raw.BridgeWrite
	}
	if meta.IsDefined("bridge_token") {
		cfg.Bridge.Token = strings.TrimSpace(raw.BridgeToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.Bridge.CorsOrigins = raw.CorsOrigins
	}

	if err := cfg.Generation.Validate(); err != nil {
		return settings{}, err
	}
	return cfg, nil
}
