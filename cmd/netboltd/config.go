package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rogpeppe/rjson"
)

type config struct {
	Listen        string `json:"listen"`
	Metrics       string `json:"metrics"`
	Debug         bool   `json:"debug"`
	LogPath       string `json:"log_path"`
	TTL           string `json:"ttl"`
	SweepInterval string `json:"sweep_interval"`

	Backend struct {
		Type string `json:"type"`

		// Properties for "disk", "bolt" and "badger" types.
		Path string `json:"path"`

		// Properties for "redis" type.
		Address  string `json:"address"`
		Password string `json:"password"`
		DB       int    `json:"db"`
		Prefix   string `json:"prefix"`

		// Properties for "s3" and "dynamodb" types.
		Profile string `json:"profile"`
		Region  string `json:"region"`
		Bucket  string `json:"bucket"`
		Table   string `json:"table"`

		// Client-side throttling, for any type. Zero means unlimited.
		GetsPerSecond float64 `json:"gets_per_second"`
		PutsPerSecond float64 `json:"puts_per_second"`
	} `json:"backend"`

	ttl           time.Duration
	sweepInterval time.Duration
}

func loadConfig(pathname string) (*config, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var c *config
	if err := rjson.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("could not decode %q: %w", pathname, err)
	}
	if c == nil {
		c = new(config)
	}
	if err := c.complete(); err != nil {
		return nil, fmt.Errorf("%q: %w", pathname, err)
	}
	return c, nil
}

// complete fills in defaults and parses durations.
func (c *config) complete() (err error) {
	if c.Listen == "" {
		c.Listen = ":8787"
	}
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "10m"
	}
	if c.ttl, err = time.ParseDuration(c.TTL); err != nil {
		return fmt.Errorf("ttl: %w", err)
	}
	if c.ttl <= 0 {
		return fmt.Errorf("ttl: must be positive, got %v", c.ttl)
	}
	if c.sweepInterval, err = time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("sweep_interval: %w", err)
	}
	if c.sweepInterval <= 0 {
		return fmt.Errorf("sweep_interval: must be positive, got %v", c.sweepInterval)
	}
	if c.Backend.Type == "" {
		c.Backend.Type = "memory"
	}
	c.Backend.Path = os.ExpandEnv(c.Backend.Path)
	c.LogPath = os.ExpandEnv(c.LogPath)
	return nil
}
