package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BridgeConfig configures the HTTP bridge in front of one device.
type BridgeConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Write enables the ceremony-mutating routes (rounds, restore).
	Write bool `toml:"write"`
	// Token, when set, is required as a bearer token on write routes.
	Token string `toml:"token"`
}

// Ceremony is one participant's view of a DKG ceremony and, once keys
// exist, of a signing session. Binary values are hex encoded.
type Ceremony struct {
	Index        uint8    `toml:"index"`
	MinSigners   uint8    `toml:"min_signers"`
	Self         string   `toml:"self"`
	Participants []string `toml:"participants"`

	Round1Public []string `toml:"round1_public"`
	Round1Secret string   `toml:"round1_secret"`
	Round2Public []string `toml:"round2_public"`
	Round2Secret string   `toml:"round2_secret"`
	GSKShares    []string `toml:"gsk_shares"`

	Signers        []string `toml:"signers"`
	TxHash         string   `toml:"tx_hash"`
	PKRandomness   string   `toml:"pk_randomness"`
	SigningPackage string   `toml:"signing_package"`
	Nonces         string   `toml:"nonces"`
}

func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "frostctl"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:9400"
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func LoadCeremony(path string) (Ceremony, error) {
	var c Ceremony
	if err := loadToml(path, &c); err != nil {
		return Ceremony{}, err
	}
	if err := ValidateCeremony(c); err != nil {
		return Ceremony{}, fmt.Errorf("ceremony %s: %w", path, err)
	}
	return c, nil
}

// SaveCeremony writes c back so later rounds can pick up earlier outputs.
func SaveCeremony(path string, c Ceremony) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("ceremony encode failed (%s): %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("ceremony write failed (%s): %w", path, err)
	}
	return nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("bridge config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("bridge config missing addr")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	return nil
}

// ValidateCeremony checks shape only; content is checked where it is used.
func ValidateCeremony(c Ceremony) error {
	n := len(c.Participants)
	if n > 0 && int(c.Index) >= n {
		return fmt.Errorf("index %d out of range for %d participants", c.Index, n)
	}
	if c.MinSigners > 0 && n > 0 && int(c.MinSigners) > n {
		return fmt.Errorf("min_signers %d exceeds %d participants", c.MinSigners, n)
	}
	for name, list := range map[string][]string{
		"round1_public": c.Round1Public,
		"round2_public": c.Round2Public,
		"gsk_shares":    c.GSKShares,
	} {
		if len(list) > 0 && len(list) != n {
			return fmt.Errorf("%s has %d entries, participants has %d", name, len(list), n)
		}
	}
	return nil
}
