package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Create new config instance
func NewConfig() *Config {
	return &Config{}
}

// Load configuration file in json format
func (c *Config) Read(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return errors.New("config: database.dsn is required")
	}
	if c.R2.BucketName == "" || c.R2.PublicBaseURL == "" {
		return errors.New("config: r2.bucket_name and r2.public_base_url are required")
	}
	if len(c.Auth.OperatorEmails) == 0 {
		return errors.New("config: auth.operator_emails must list at least one operator")
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = 5
	}
	return nil
}
