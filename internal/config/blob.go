package config

import (
	"errors"

	"sitereport/internal/blob"
)

// BlobConfig selects where archives and export artifacts are written.
type BlobConfig struct {
	Driver string `yaml:"driver"`
	Root   string `yaml:"root"`

	S3Region          string `yaml:"s3_region"`
	S3Bucket          string `yaml:"s3_bucket"`
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3PathStyle       bool   `yaml:"s3_path_style"`
	S3Prefix          string `yaml:"s3_prefix"`

	AzureConnectionString string `yaml:"azure_connection_string"`
	AzureContainer        string `yaml:"azure_container"`
}

// Finalize applies defaults, environment overrides and validation.
func (c *BlobConfig) Finalize() error {
	c.loadEnv()
	if c.Driver == "" {
		c.Driver = string(blob.DriverFilesystem)
	}
	if c.Root == "" {
		c.Root = "./reports"
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *BlobConfig) Merge(overlay *BlobConfig) {
	mergeString(&c.Driver, overlay.Driver)
	mergeString(&c.Root, overlay.Root)
	mergeString(&c.S3Region, overlay.S3Region)
	mergeString(&c.S3Bucket, overlay.S3Bucket)
	mergeString(&c.S3Endpoint, overlay.S3Endpoint)
	mergeString(&c.S3AccessKeyID, overlay.S3AccessKeyID)
	mergeString(&c.S3SecretAccessKey, overlay.S3SecretAccessKey)
	if overlay.S3PathStyle {
		c.S3PathStyle = true
	}
	mergeString(&c.S3Prefix, overlay.S3Prefix)
	mergeString(&c.AzureConnectionString, overlay.AzureConnectionString)
	mergeString(&c.AzureContainer, overlay.AzureContainer)
}

func (c *BlobConfig) loadEnv() {
	envString("SITEREPORT_BLOB_DRIVER", &c.Driver)
	envString("SITEREPORT_BLOB_ROOT", &c.Root)
	envString("SITEREPORT_S3_REGION", &c.S3Region)
	envString("SITEREPORT_S3_BUCKET", &c.S3Bucket)
	envString("SITEREPORT_S3_ENDPOINT", &c.S3Endpoint)
	envString("SITEREPORT_S3_ACCESS_KEY_ID", &c.S3AccessKeyID)
	envString("SITEREPORT_S3_SECRET_ACCESS_KEY", &c.S3SecretAccessKey)
	envBool("SITEREPORT_S3_PATH_STYLE", &c.S3PathStyle)
	envString("SITEREPORT_S3_PREFIX", &c.S3Prefix)
	envString("SITEREPORT_AZURE_CONNECTION_STRING", &c.AzureConnectionString)
	envString("SITEREPORT_AZURE_CONTAINER", &c.AzureContainer)
}

func (c *BlobConfig) validate() error {
	if err := oneOf("driver", c.Driver,
		string(blob.DriverFilesystem), string(blob.DriverMemory), string(blob.DriverS3), string(blob.DriverAzure),
	); err != nil {
		return err
	}
	switch blob.Driver(c.Driver) {
	case blob.DriverS3:
		if c.S3Bucket == "" {
			return errors.New("s3 driver requires s3_bucket")
		}
	case blob.DriverAzure:
		if c.AzureConnectionString == "" {
			return errors.New("azure driver requires azure_connection_string")
		}
	}
	return nil
}

// Store returns the blob.Config for blob.Open.
func (c *BlobConfig) Store() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Driver),
		FSRoot: c.Root,
		S3: blob.S3Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			Endpoint:        c.S3Endpoint,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretAccessKey,
			PathStyle:       c.S3PathStyle,
			Prefix:          c.S3Prefix,
		},
		Azure: blob.AzureConfig{
			ConnectionString: c.AzureConnectionString,
			Container:        c.AzureContainer,
		},
	}
}
