// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package s3client

import (
	"os"

	"github.com/zeebo/errs"
)

// ErrMissingConfig is returned when a required connection setting is absent.
var ErrMissingConfig = errs.Class("s3client: missing configuration")

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config binds the client to a single S3-compatible endpoint.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	UsePathStyle    bool
}

// LoadConfig reads connection settings from the environment. ENDPOINT,
// ACCESS_KEY_ID and ACCESS_KEY_SECRET are required; REGION_NAME falls back
// to DefaultRegion.
func LoadConfig() (Config, error) {
	config := Config{
		Endpoint:        os.Getenv("ENDPOINT"),
		AccessKeyID:     os.Getenv("ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("ACCESS_KEY_SECRET"),
		Region:          os.Getenv("REGION_NAME"),
		UsePathStyle:    os.Getenv("USE_PATH_STYLE") == "true",
	}
	if config.Region == "" {
		config.Region = DefaultRegion
	}
	return config, config.Validate()
}

// Validate checks that all required connection settings are present.
func (config Config) Validate() error {
	switch {
	case config.Endpoint == "":
		return ErrMissingConfig.New("ENDPOINT is required")
	case config.AccessKeyID == "":
		return ErrMissingConfig.New("ACCESS_KEY_ID is required")
	case config.SecretAccessKey == "":
		return ErrMissingConfig.New("ACCESS_KEY_SECRET is required")
	}
	return nil
}
