package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateForward(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/bobbin/config.toml"
		}
		return fmt.Errorf("paths.watch_dir is required. Edit %s (create with 'bobbin config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if strings.ContainsAny(c.Ingest.PrimaryLog, `/\`) {
		return errors.New("ingest.primary_log must be a file name, not a path")
	}
	if !doublestar.ValidatePattern(c.Ingest.FilePattern) {
		return fmt.Errorf("ingest.file_pattern %q is not a valid glob", c.Ingest.FilePattern)
	}
	if c.Ingest.HubCapacity <= 0 {
		return errors.New("ingest.hub_capacity must be positive")
	}
	return nil
}

func (c *Config) validateForward() error {
	if !c.Forward.Enabled {
		return nil
	}
	if len(c.Forward.Brokers) == 0 {
		return errors.New("forward.brokers must include at least one broker when forward.enabled is true")
	}
	if strings.TrimSpace(c.Forward.Topic) == "" {
		return errors.New("forward.topic must be set when forward.enabled is true")
	}
	if c.Forward.TimeoutSeconds <= 0 {
		return errors.New("forward.timeout_seconds must be positive")
	}
	return nil
}
