// Package config loads the settings shared by the semnet binaries from a YAML
// file, overlays SEMNET_* environment variables and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
	"github.com/dd0wney/cluso-semnet/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SEMNET_"

// Snapshot backends.
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	S3       S3Config       `yaml:"s3"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatasetConfig struct {
	// Path of a YAML dataset, or "builtin:medical".
	Path string `yaml:"path"`
	// Watch reloads the server's knowledge base when the file changes.
	Watch bool `yaml:"watch"`
}

type SnapshotConfig struct {
	Backend string `yaml:"backend"`
	// Path applies to the file backend. The file extension, or that of
	// s3.key, selects the encoding: .json, .yaml/.yml, or a trailing .sz
	// for snappy.
	Path string `yaml:"path"`
	// LoadOnStart replaces the dataset with the snapshot when one exists.
	LoadOnStart bool `yaml:"load_on_start"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AuthEnabled     bool          `yaml:"auth_enabled"`
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	MaxQueryDepth   int           `yaml:"max_query_depth"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	APIKeys         []APIKey      `yaml:"api_keys"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig serves HTTPS when Enabled, from CertFile/KeyFile or, with
// AutoGenerate, a self-signed certificate for Hosts.
type TLSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	CertFile     string   `yaml:"cert_file"`
	KeyFile      string   `yaml:"key_file"`
	ClientCAFile string   `yaml:"client_ca_file"`
	AutoGenerate bool     `yaml:"auto_generate"`
	Hosts        []string `yaml:"hosts"`
}

// APIKey is a static credential accepted by the server and exchangeable for
// a JWT at /token.
type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	Role string `yaml:"role"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

// S3Config locates the snapshot object. Without static keys the SDK's
// default credential chain is used.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Dataset: DatasetConfig{Path: dataset.BuiltinMedical},
		Snapshot: SnapshotConfig{
			Backend: BackendNone,
			Path:    "semnet.json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			TokenTTL:        time.Hour,
			MaxQueryDepth:   6,
			ShutdownTimeout: 30 * time.Second,
		},
		S3: S3Config{
			Key:    "semnet/snapshot.json",
			Region: "us-east-1",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := validation.ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays SEMNET_* variables read through lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &c.Log.Level)
	str("DATASET", &c.Dataset.Path)
	boolean("DATASET_WATCH", &c.Dataset.Watch)
	str("SNAPSHOT_BACKEND", &c.Snapshot.Backend)
	str("SNAPSHOT_PATH", &c.Snapshot.Path)
	boolean("SNAPSHOT_LOAD_ON_START", &c.Snapshot.LoadOnStart)
	str("SERVER_ADDR", &c.Server.Addr)
	boolean("AUTH_ENABLED", &c.Server.AuthEnabled)
	str("JWT_SECRET", &c.Server.JWTSecret)
	duration("TOKEN_TTL", &c.Server.TokenTTL)
	integer("MAX_QUERY_DEPTH", &c.Server.MaxQueryDepth)
	duration("SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	boolean("TLS_ENABLED", &c.Server.TLS.Enabled)
	str("TLS_CERT_FILE", &c.Server.TLS.CertFile)
	str("TLS_KEY_FILE", &c.Server.TLS.KeyFile)
	str("TLS_CLIENT_CA_FILE", &c.Server.TLS.ClientCAFile)
	boolean("TLS_AUTO_GENERATE", &c.Server.TLS.AutoGenerate)
	str("POSTGRES_URL", &c.Postgres.URL)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_KEY", &c.S3.Key)
	str("S3_REGION", &c.S3.Region)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)

	return errors.Join(errs...)
}

// Validate implements validation.Validatable.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("config").
		OneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"}).
		Required("dataset.path", c.Dataset.Path).
		When(c.Dataset.Watch, func(v *validation.ConfigValidator) {
			v.Custom("dataset.watch", func() error {
				if c.Dataset.Path == dataset.BuiltinMedical {
					return errors.New("the built-in dataset cannot be watched")
				}
				return nil
			})
		}).
		OneOf("snapshot.backend", c.Snapshot.Backend, []string{BackendNone, BackendFile, BackendPostgres, BackendS3}).
		When(c.Snapshot.Backend == BackendFile, func(v *validation.ConfigValidator) {
			v.Required("snapshot.path", c.Snapshot.Path).
				Custom("snapshot.path", func() error { return codecFor(c.Snapshot.Path) })
		}).
		When(c.Snapshot.Backend == BackendPostgres, func(v *validation.ConfigValidator) {
			v.URL("postgres.url", c.Postgres.URL, "postgres", "postgresql")
		}).
		When(c.Snapshot.Backend == BackendS3, func(v *validation.ConfigValidator) {
			v.Required("s3.bucket", c.S3.Bucket).
				Required("s3.key", c.S3.Key).
				Required("s3.region", c.S3.Region).
				Custom("s3.key", func() error { return codecFor(c.S3.Key) })
			if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
				v.Custom("s3.secret_key", func() error {
					return errors.New("access_key and secret_key must be set together")
				})
			}
			if c.S3.Endpoint != "" {
				v.URL("s3.endpoint", c.S3.Endpoint, "http", "https")
			}
		}).
		Required("server.addr", c.Server.Addr).
		RangeInt("server.max_query_depth", c.Server.MaxQueryDepth, 1, 50).
		RangeDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second, 10*time.Minute).
		When(c.Server.AuthEnabled, func(v *validation.ConfigValidator) {
			v.MinLength("server.jwt_secret", c.Server.JWTSecret, 32).
				RangeDuration("server.token_ttl", c.Server.TokenTTL, time.Minute, 30*24*time.Hour)
		}).
		When(c.Server.TLS.Enabled && !c.Server.TLS.AutoGenerate, func(v *validation.ConfigValidator) {
			v.Required("server.tls.cert_file", c.Server.TLS.CertFile).
				Required("server.tls.key_file", c.Server.TLS.KeyFile)
		})

	for i, k := range c.Server.APIKeys {
		field := fmt.Sprintf("server.api_keys[%d]", i)
		v.Required(field+".name", k.Name).
			MinLength(field+".key", k.Key, auth.MinKeyLength).
			OneOf(field+".role", k.Role, []string{auth.RoleAdmin, auth.RoleReader})
	}
	return v.Validate()
}

func codecFor(path string) error {
	_, err := persist.CodecFor(path)
	return err
}
