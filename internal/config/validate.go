package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateRclone(); err != nil {
		return err
	}
	if err := c.validateMappings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	return nil
}

func (c *Config) validatePlex() error {
	parsed, err := url.Parse(c.Plex.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("plex.url %q is not a valid URL", c.Plex.URL)
	}
	if c.Plex.Token == "" {
		defaultPath, pathErr := DefaultConfigPath()
		if pathErr != nil {
			defaultPath = "~/.config/servarrsync/config.toml"
		}
		return fmt.Errorf("plex.token is required. Set PLEX_TOKEN env var or edit %s (create with 'servarrsync config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateRclone() error {
	if !c.Rclone.Enabled {
		return nil
	}
	if c.Rclone.RCURL == "" {
		return errors.New("rclone.rc_url must be set when rclone.enabled is true")
	}
	parsed, err := url.Parse(c.Rclone.RCURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("rclone.rc_url %q is not a valid URL", c.Rclone.RCURL)
	}
	return nil
}

func (c *Config) validateMappings() error {
	if len(c.Mappings.Sections) == 0 {
		return errors.New("mappings.sections must contain at least one library root")
	}
	for root, section := range c.Mappings.Sections {
		if strings.TrimSpace(root) == "" {
			return errors.New("mappings.sections contains an empty library root")
		}
		if strings.TrimSpace(section) == "" {
			return fmt.Errorf("mappings.sections[%q] has an empty section id", root)
		}
	}
	return nil
}
