package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeForward()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WatchDir) != "" {
		if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
			return fmt.Errorf("paths.watch_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArchivePath) == "" {
		c.Paths.ArchivePath = filepath.Join(c.Paths.LogDir, defaultArchiveFileName)
	}
	if c.Paths.ArchivePath, err = expandPath(c.Paths.ArchivePath); err != nil {
		return fmt.Errorf("paths.archive_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.LogDir, defaultSocketFileName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = filepath.Join(c.Paths.LogDir, defaultLockFileName)
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.PrimaryLog = strings.TrimSpace(c.Ingest.PrimaryLog)
	if c.Ingest.PrimaryLog == "" {
		c.Ingest.PrimaryLog = defaultPrimaryLog
	}
	c.Ingest.FilePattern = strings.TrimSpace(c.Ingest.FilePattern)
	if c.Ingest.FilePattern == "" {
		c.Ingest.FilePattern = defaultFilePattern
	}
	if c.Ingest.HubCapacity <= 0 {
		c.Ingest.HubCapacity = defaultHubCapacity
	}
}

func (c *Config) normalizeForward() {
	brokers := make([]string, 0, len(c.Forward.Brokers))
	seen := make(map[string]struct{}, len(c.Forward.Brokers))
	for _, broker := range c.Forward.Brokers {
		normalized := strings.TrimSpace(broker)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		brokers = append(brokers, normalized)
	}
	c.Forward.Brokers = brokers

	c.Forward.Topic = strings.TrimSpace(c.Forward.Topic)
	if c.Forward.Topic == "" {
		c.Forward.Topic = defaultForwardTopic
	}
	c.Forward.ClientID = strings.TrimSpace(c.Forward.ClientID)
	if c.Forward.ClientID == "" {
		c.Forward.ClientID = defaultForwardClientID
	}
	if c.Forward.TimeoutSeconds <= 0 {
		c.Forward.TimeoutSeconds = defaultForwardTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
