package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/preservd/internal/flagx"
	"github.com/dmitrijs2005/preservd/internal/timex"
)

// FileConfig is the on-disk form of Config, readable from JSON or YAML.
// Every field is optional; only keys present in the file override the
// defaults.
type FileConfig struct {
	Enabled        *bool   `json:"enabled" yaml:"enabled"`
	FedoraScheme   *string `json:"fedora_scheme" yaml:"fedora_scheme"`
	FedoraServer   *string `json:"server" yaml:"server"`
	FedoraPort     *int    `json:"port" yaml:"port"`
	FedoraRootPath *string `json:"root_path" yaml:"root_path"`
	FedoraUser     *string `json:"user" yaml:"user"`
	FedoraPassword *string `json:"password" yaml:"password"`

	HTTPTimeout *timex.Duration `json:"http_timeout" yaml:"http_timeout"`

	LocalRoot         *string           `json:"local_root" yaml:"local_root"`
	ReferenceRewrites map[string]string `json:"reference_rewrites" yaml:"reference_rewrites"`

	MetadataFormat *string `json:"metadata_format" yaml:"metadata_format"`
	MetadataMajor  *int    `json:"metadata_major" yaml:"metadata_major"`
	MetadataExt    *string `json:"metadata_ext" yaml:"metadata_ext"`
	PublicSchema   *string `json:"public_schema" yaml:"public_schema"`
	PublicMajor    *int    `json:"public_major" yaml:"public_major"`
	PublicExt      *string `json:"public_ext" yaml:"public_ext"`

	CommitMaxRetries   *int            `json:"commit_max_retries" yaml:"commit_max_retries"`
	CommitPollInterval *timex.Duration `json:"commit_poll_interval" yaml:"commit_poll_interval"`

	JobRetries          *int            `json:"job_retries" yaml:"job_retries"`
	JobBackoff          *timex.Duration `json:"job_backoff" yaml:"job_backoff"`
	Concurrency         *int            `json:"concurrency" yaml:"concurrency"`
	RequestPollInterval *timex.Duration `json:"request_poll_interval" yaml:"request_poll_interval"`
	RequestLease        *timex.Duration `json:"request_lease" yaml:"request_lease"`

	DatabaseDSN *string `json:"database_dsn" yaml:"database_dsn"`

	S3RootUser     *string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       *string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`

	EndpointAddrGRPC *string `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`

	AlertGitLabURL     *string `json:"alert_gitlab_url" yaml:"alert_gitlab_url"`
	AlertGitLabProject *string `json:"alert_gitlab_project" yaml:"alert_gitlab_project"`
	AlertGitLabToken   *string `json:"alert_gitlab_token" yaml:"alert_gitlab_token"`

	LogLevel *string `json:"log_level" yaml:"log_level"`
}

// decodeFile parses b as YAML for .yml/.yaml paths and as JSON otherwise.
func decodeFile(path string, b []byte) (*FileConfig, error) {
	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("yaml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("json %s: %w", path, err)
		}
	}
	return c, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// apply overlays every key present in f onto config.
func (f *FileConfig) apply(config *Config) {
	set(&config.Enabled, f.Enabled)
	set(&config.FedoraScheme, f.FedoraScheme)
	set(&config.FedoraServer, f.FedoraServer)
	set(&config.FedoraPort, f.FedoraPort)
	set(&config.FedoraRootPath, f.FedoraRootPath)
	set(&config.FedoraUser, f.FedoraUser)
	set(&config.FedoraPassword, f.FedoraPassword)
	setDuration(&config.HTTPTimeout, f.HTTPTimeout)
	set(&config.LocalRoot, f.LocalRoot)
	if f.ReferenceRewrites != nil {
		config.ReferenceRewrites = f.ReferenceRewrites
	}
	set(&config.MetadataFormat, f.MetadataFormat)
	set(&config.MetadataMajor, f.MetadataMajor)
	set(&config.MetadataExt, f.MetadataExt)
	set(&config.PublicSchema, f.PublicSchema)
	set(&config.PublicMajor, f.PublicMajor)
	set(&config.PublicExt, f.PublicExt)
	set(&config.CommitMaxRetries, f.CommitMaxRetries)
	setDuration(&config.CommitPollInterval, f.CommitPollInterval)
	set(&config.JobRetries, f.JobRetries)
	setDuration(&config.JobBackoff, f.JobBackoff)
	set(&config.Concurrency, f.Concurrency)
	setDuration(&config.RequestPollInterval, f.RequestPollInterval)
	setDuration(&config.RequestLease, f.RequestLease)
	set(&config.DatabaseDSN, f.DatabaseDSN)
	set(&config.S3RootUser, f.S3RootUser)
	set(&config.S3RootPassword, f.S3RootPassword)
	set(&config.S3Bucket, f.S3Bucket)
	set(&config.S3Region, f.S3Region)
	set(&config.S3BaseEndpoint, f.S3BaseEndpoint)
	set(&config.EndpointAddrGRPC, f.EndpointAddrGRPC)
	set(&config.AlertGitLabURL, f.AlertGitLabURL)
	set(&config.AlertGitLabProject, f.AlertGitLabProject)
	set(&config.AlertGitLabToken, f.AlertGitLabToken)
	set(&config.LogLevel, f.LogLevel)
}

// parseFile overlays the file named by -c/-config onto config. Without the
// flag nothing is loaded. An unreadable or malformed file panics, matching
// how flag errors are treated.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c, err := decodeFile(path, b)
	if err != nil {
		panic(err)
	}
	c.apply(config)
}
