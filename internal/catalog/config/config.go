// Package config holds the catalog service configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/abgdnv/productcatalog/internal/catalog/service"
	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/abgdnv/productcatalog/pkg/config/configloader"
)

// ServiceName is the configuration namespace; environment variables use the CATALOG_ prefix.
const ServiceName = "catalog"

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Storage    StorageConfig           `koanf:"storage"`
	Catalog    CatalogConfig           `koanf:"catalog"`
	Cache      config.CacheConfig      `koanf:"cache"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
}

// StorageConfig locates the image directory.
type StorageConfig struct {
	Dir            string `koanf:"dir"`
	MaxUploadBytes int64  `koanf:"maxUploadBytes"`
	FilePerm       uint32 `koanf:"filePerm"`
	DirPerm        uint32 `koanf:"dirPerm"`
}

func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  dir: %s\n", c.Dir))
	b.WriteString(fmt.Sprintf("  maxUploadBytes: %d\n", c.MaxUploadBytes))
	b.WriteString(fmt.Sprintf("  filePerm: %#o\n", c.FilePerm))
	b.WriteString(fmt.Sprintf("  dirPerm: %#o\n", c.DirPerm))
	return b.String()
}

func (c *StorageConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("storage directory is not configured")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage maxUploadBytes must be greater than 0")
	}
	if c.FilePerm > uint32(fs.ModePerm) || c.DirPerm > uint32(fs.ModePerm) {
		return fmt.Errorf("storage permissions must be within 0777")
	}
	return nil
}

// CatalogConfig selects the workflow policies of the catalog service.
type CatalogConfig struct {
	Delete struct {
		OnMissing string `koanf:"onMissing"`
	} `koanf:"delete"`
	Update struct {
		ImageReplace string `koanf:"imageReplace"`
	} `koanf:"update"`
}

func (c *CatalogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  delete.onMissing: %s\n", c.Delete.OnMissing))
	b.WriteString(fmt.Sprintf("  update.imageReplace: %s\n", c.Update.ImageReplace))
	return b.String()
}

func (c *CatalogConfig) Validate() error {
	switch service.MissingPolicy(c.Delete.OnMissing) {
	case "", service.OnMissingNoop, service.OnMissingError:
	default:
		return fmt.Errorf("invalid catalog.delete.onMissing %q: want noop or error", c.Delete.OnMissing)
	}
	switch service.ReplacePolicy(c.Update.ImageReplace) {
	case "", service.ReplaceDeleteFirst, service.ReplaceWriteFirst:
	default:
		return fmt.Errorf("invalid catalog.update.imageReplace %q: want delete-first or write-first", c.Update.ImageReplace)
	}
	return nil
}

// Options converts the section into service options.
func (c *CatalogConfig) Options() service.Options {
	return service.Options{
		OnMissing:    service.MissingPolicy(c.Delete.OnMissing),
		ImageReplace: service.ReplacePolicy(c.Update.ImageReplace),
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.Catalog.String())
	b.WriteString(c.Cache.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	return errors.Join(
		c.HTTPServer.Validate(),
		c.Database.Validate(),
		c.Storage.Validate(),
		c.Catalog.Validate(),
		c.Cache.Validate(),
		c.Log.Validate(),
		c.PProf.Validate(),
		c.GRPC.Validate(),
		c.Shutdown.Validate(),
		c.NATS.Validate(),
		c.Telemetry.Validate(),
	)
}
