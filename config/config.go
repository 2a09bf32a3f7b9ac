// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cardinalhq/fileinput/internal/cloudstorage"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/inputformat"
	"github.com/cardinalhq/fileinput/internal/jobconf"
)

// Config aggregates configuration for the command line tools.
type Config struct {
	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Splits  SplitsConfig  `mapstructure:"splits" yaml:"splits"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Read    ReadConfig    `mapstructure:"read" yaml:"read"`
}

// InputConfig describes how input files are read.
type InputConfig struct {
	Format                  string `mapstructure:"format" yaml:"format"`
	Schema                  string `mapstructure:"schema" yaml:"schema"`
	PathField               string `mapstructure:"path_field" yaml:"path_field"`
	FilenameOnly            bool   `mapstructure:"filename_only" yaml:"filename_only"`
	DelegateTextInputFormat string `mapstructure:"delegate_text_input_format" yaml:"delegate_text_input_format"`
	CopyHeader              bool   `mapstructure:"copy_header" yaml:"copy_header"`
	SkipHeader              bool   `mapstructure:"skip_header" yaml:"skip_header"`
	Delimiter               string `mapstructure:"delimiter" yaml:"delimiter"`
	TimestampMicros         bool   `mapstructure:"timestamp_micros" yaml:"timestamp_micros"`
	Recursive               bool   `mapstructure:"recursive" yaml:"recursive"`
	TagStart                string `mapstructure:"tag_start" yaml:"tag_start"`
	TagEnd                  string `mapstructure:"tag_end" yaml:"tag_end"`
}

// SplitsConfig bounds the splits handed to readers.
type SplitsConfig struct {
	MinSize        int64 `mapstructure:"min_size" yaml:"min_size"`
	MaxSize        int64 `mapstructure:"max_size" yaml:"max_size"`
	Combine        bool  `mapstructure:"combine" yaml:"combine"`
	CombineMaxSize int64 `mapstructure:"combine_max_size" yaml:"combine_max_size"`
}

// StorageConfig configures the object store providers.
type StorageConfig struct {
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`

	S3Region    string `mapstructure:"s3_region" yaml:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint" yaml:"s3_endpoint"`
	S3PathStyle bool   `mapstructure:"s3_path_style" yaml:"s3_path_style"`
	S3Role      string `mapstructure:"s3_role" yaml:"s3_role"`
	S3AccessKey string `mapstructure:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key" yaml:"s3_secret_key"`

	GCSEndpoint       string `mapstructure:"gcs_endpoint" yaml:"gcs_endpoint"`
	GCSServiceAccount string `mapstructure:"gcs_service_account" yaml:"gcs_service_account"`

	AzureAccount  string `mapstructure:"azure_account" yaml:"azure_account"`
	AzureEndpoint string `mapstructure:"azure_endpoint" yaml:"azure_endpoint"`
}

// ReadConfig controls how splits are executed.
type ReadConfig struct {
	// Parallel is the number of splits read at once.
	Parallel int `mapstructure:"parallel" yaml:"parallel"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"format":                     "input.format",
	"schema":                     "input.schema",
	"path-field":                 "input.path_field",
	"filename-only":              "input.filename_only",
	"delegate-text-input-format": "input.delegate_text_input_format",
	"copy-header":                "input.copy_header",
	"skip-header":                "input.skip_header",
	"delimiter":                  "input.delimiter",
	"timestamp-micros":           "input.timestamp_micros",
	"recursive":                  "input.recursive",
	"tag-start":                  "input.tag_start",
	"tag-end":                    "input.tag_end",
	"min-split-size":             "splits.min_size",
	"max-split-size":             "splits.max_size",
	"combine":                    "splits.combine",
	"combine-max-size":           "splits.combine_max_size",
	"parallel":                   "read.parallel",
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Input:  InputConfig{Format: filereader.FormatText.String()},
		Splits: SplitsConfig{MinSize: 1, MaxSize: inputformat.DefaultMaxSplitSize, CombineMaxSize: inputformat.DefaultMaxSplitSize},
		Read:   ReadConfig{Parallel: 4},
	}
}

// Load reads configuration from an optional file, environment variables
// and command line flags, in increasing order of precedence.
// Environment variables use the prefix "FILEINPUT" and the dot character
// in keys is replaced by an underscore. For example, "splits.max_size"
// becomes "FILEINPUT_SPLITS_MAX_SIZE".
//
// The file is the one named by the "config" flag, or fileinput.yaml in
// the working directory when it exists. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("FILEINPUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("fileinput")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key of cfg with its current value so that
// viper looks up the matching environment variable when unmarshalling.
func setDefaults(v *viper.Viper, cfg any, parts ...string) {
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
		key := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			setDefaults(v, val.Field(i).Interface(), key...)
			continue
		}
		v.SetDefault(strings.Join(key, "."), val.Field(i).Interface())
	}
}

// Validate rejects settings no reader can work with.
func (c *Config) Validate() error {
	if c.Splits.MinSize <= 0 || c.Splits.MaxSize <= 0 || c.Splits.CombineMaxSize <= 0 {
		return fmt.Errorf("split sizes must be positive")
	}
	if c.Read.Parallel <= 0 {
		return fmt.Errorf("read.parallel must be positive, got %d", c.Read.Parallel)
	}
	return nil
}

// Descriptor returns the input descriptor for the configured input.
func (c *Config) Descriptor() inputformat.Descriptor {
	return inputformat.Descriptor{
		Format:                  filereader.ParseFormat(c.Input.Format),
		Schema:                  c.Input.Schema,
		PathField:               c.Input.PathField,
		FilenameOnly:            c.Input.FilenameOnly,
		DelegateTextInputFormat: c.Input.DelegateTextInputFormat,
		CopyHeader:              c.Input.CopyHeader,
		SkipHeader:              c.Input.SkipHeader,
		Delimiter:               c.Input.Delimiter,
		TimestampMicros:         c.Input.TimestampMicros,
	}
}

// Apply writes the job settings for inputs into conf.
func (c *Config) Apply(conf *jobconf.Configuration, inputs []string) error {
	if err := inputformat.Configure(conf, c.Descriptor()); err != nil {
		return err
	}
	inputformat.SetInputPaths(conf, inputs...)
	inputformat.SetSplitSizes(conf, inputformat.SplitSizes{Min: c.Splits.MinSize, Max: c.Splits.MaxSize})
	conf.SetBool(inputformat.KeyInputRecursive, c.Input.Recursive)
	conf.SetBool(inputformat.KeyCombine, c.Splits.Combine)
	conf.SetInt64(inputformat.KeyCombineMaxSize, c.Splits.CombineMaxSize)
	if c.Input.TagStart != "" {
		conf.Set(filereader.TagStartKey, c.Input.TagStart)
	}
	if c.Input.TagEnd != "" {
		conf.Set(filereader.TagEndKey, c.Input.TagEnd)
	}
	return nil
}

// StorageOptions returns the options for cloudstorage.NewRouter.
func (c *Config) StorageOptions() cloudstorage.Options {
	s := c.Storage
	return cloudstorage.Options{
		TempDir:           s.TempDir,
		S3Region:          s.S3Region,
		S3Endpoint:        s.S3Endpoint,
		S3PathStyle:       s.S3PathStyle,
		S3Role:            s.S3Role,
		S3AccessKey:       s.S3AccessKey,
		S3SecretKey:       s.S3SecretKey,
		GCSEndpoint:       s.GCSEndpoint,
		GCSServiceAccount: s.GCSServiceAccount,
		AzureAccount:      s.AzureAccount,
		AzureEndpoint:     s.AzureEndpoint,
	}
}
