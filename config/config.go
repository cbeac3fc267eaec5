package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"projup/pkg/batch"
	"projup/pkg/counter"
	"projup/pkg/patch"
	"projup/pkg/sink"
)

const (
	FormatZip  = "zip"
	FormatAGCP = "agcp"
)

type Config struct {
	Log     LogConfig      `mapstructure:"log"`
	Archive ArchiveConfig  `mapstructure:"archive"`
	Output  string         `mapstructure:"output"`
	Input   InputConfig    `mapstructure:"input"`
	Counter counter.Config `mapstructure:"counter"`
	Server  ServerConfig   `mapstructure:"server"`
	Patch   PatchConfig    `mapstructure:"patch"`
	Sink    SinkConfig     `mapstructure:"sink"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ArchiveConfig struct {
	Prefix string `mapstructure:"prefix"`
	Format string `mapstructure:"format"`
}

type InputConfig struct {
	Extension string `mapstructure:"extension"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	MaxUploadMiB int64  `mapstructure:"max_upload_mib"`
}

type PatchConfig struct {
	Element    string       `mapstructure:"element"`
	Attributes []patch.Attr `mapstructure:"attributes"`
}

type SinkConfig struct {
	S3 sink.S3Options `mapstructure:"s3"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Archive: ArchiveConfig{Prefix: batch.DefaultArchivePrefix, Format: FormatZip},
		Output:  ".",
		Input:   InputConfig{Extension: ".prproj"},
		Counter: counter.DefaultConfig(),
		Server:  ServerConfig{Addr: ":8080", MaxUploadMiB: 512},
		Patch:   PatchConfig{Element: patch.DefaultElement},
	}
}

// Load reads projup.yaml and PROJUP_* environment variables on top of the
// defaults. An explicit path must exist; otherwise a missing file is fine.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("projup")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "projup"))
		}
	}
	v.SetEnvPrefix("PROJUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	switch c.Archive.Format {
	case FormatZip, FormatAGCP:
	default:
		return fmt.Errorf("archive.format must be %q or %q, got %q", FormatZip, FormatAGCP, c.Archive.Format)
	}
	if c.Patch.Element == "" {
		return fmt.Errorf("patch.element must not be empty")
	}
	return nil
}

// Patcher compiles the configured version patcher. The project element
// gets its standard attributes unless the config lists its own.
func (c *Config) Patcher() (*patch.Patcher, error) {
	attrs := c.Patch.Attributes
	if attrs == nil && c.Patch.Element == patch.DefaultElement {
		attrs = patch.DefaultAttributes
	}
	return patch.New(c.Patch.Element, attrs)
}

func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
