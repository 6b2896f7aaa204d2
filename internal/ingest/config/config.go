// Package config handles configuration for the ingest component, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the camlink ingest service.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx); empty selects the in-memory store.
//   - SecretKey: HMAC secret for upload tokens (HS256); empty disables auth.
//   - TokenValidityDuration: lifetime of issued upload tokens.
//   - StorageBackend: "disk" or "s3".
//   - DiskRoot: blob directory for the disk backend.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - RegistryURL: registry notification endpoint; empty disables it.
//   - RegistryTimeout: per-notification HTTP deadline.
type Config struct {
	EndpointAddr          string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	StorageBackend        string
	DiskRoot              string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
	RegistryURL           string
	RegistryTimeout       time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = ""
	c.TokenValidityDuration = 24 * time.Hour
	c.StorageBackend = "disk"
	c.DiskRoot = "blobs"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "photos"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.RegistryURL = ""
	c.RegistryTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
