package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Version int `yaml:"version"`
	Batch   struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		ConfigFile    string `yaml:"config_file"`
		TreatmentFile string `yaml:"treatment_file"`
		Treatment     string `yaml:"treatment"`
		IntroSequence string `yaml:"intro_sequence"`
	} `yaml:"batch"`
	CDN struct {
		Target    string `yaml:"target"`
		BaseURL   string `yaml:"base_url"`
		LocalRoot string `yaml:"local_root"`
	} `yaml:"cdn"`
	Network struct {
		APIPort  int `yaml:"api_port"`
		MQTTPort int `yaml:"mqtt_port"`
		DBPort   int `yaml:"db_port"`
	} `yaml:"network"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *EngineConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

func LoadEngineConfig(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported engine.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}
