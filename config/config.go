package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Service is the static configuration for one composed ledger service.
type Service struct {
	Name         string `toml:"Name"`
	Env          string `toml:"Env"`
	DataDir      string `toml:"DataDir"`
	Namespace    string `toml:"Namespace"`
	PricePerByte string `toml:"PricePerByte"`
	Paused       bool   `toml:"Paused"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Service, error) {
	cfg := &Service{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Service) {
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "ledger-service"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		cfg.Namespace = cfg.Name
	}
	if strings.TrimSpace(cfg.PricePerByte) == "" {
		cfg.PricePerByte = "0"
	}
}

func createDefault(path string) (*Service, error) {
	cfg := &Service{}
	applyDefaults(cfg)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create default: %w", err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Service) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("config: Namespace is required")
	}
	if _, err := c.Price(); err != nil {
		return err
	}
	return nil
}

// Price parses PricePerByte as a non-negative decimal integer.
func (c *Service) Price() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.PricePerByte)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	price, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || price.Sign() < 0 {
		return nil, fmt.Errorf("config: PricePerByte must be a non-negative integer (got %q)", c.PricePerByte)
	}
	return price, nil
}
