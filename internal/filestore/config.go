package filestore

import "github.com/koustreak/tabula/internal/errs"

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Region skips the bucket location lookup when set.
	Region string `yaml:"region"`

	// Bucket holds every downloadable object.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey, bucket string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    bucket,
	}
}

// Enabled reports whether a download store is configured at all.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// Validate checks an enabled config for missing fields.
func (c *Config) Validate() error {
	if c.Provider != "" && c.Provider != ProviderMinIO {
		return errs.Newf(errs.ErrKindConfig, "unknown file store provider %q", c.Provider)
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindConfig, "file store endpoint is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindConfig, "file store bucket is required")
	}
	return nil
}
