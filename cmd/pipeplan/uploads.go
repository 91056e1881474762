package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pipeplan/internal/export"
)

// objectStore builds the upload target from the s3 flags. It returns nil
// when no endpoint is configured.
func objectStore(c *cli.Command) (*export.ObjectStore, error) {
	applyObjectStoreConfig(c, loadedConfig.ObjectStore)
	if strings.TrimSpace(s3Endpoint) == "" {
		return nil, nil
	}
	return export.NewObjectStore(export.ObjectConfig{
		Endpoint:  s3Endpoint,
		AccessKey: s3AccessKey,
		SecretKey: s3SecretKey,
		Bucket:    s3Bucket,
		Prefix:    s3Prefix,
		Region:    s3Region,
		UseSSL:    s3UseSSL,
	})
}
