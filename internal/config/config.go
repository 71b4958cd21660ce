package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	merrors "github.com/matcha-dev/matcha/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "matcha.json"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "MATCHA"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultServePort is the default production server port.
	DefaultServePort = 8080

	// DefaultDevPort is the default development server port.
	DefaultDevPort = 5173

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultDebounce coalesces bursts of file events in dev mode.
	DefaultDebounce = 100 * time.Millisecond
)

// Config represents matcha.json.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" mapstructure:"name"`

	Build   BuildConfig   `json:"build" mapstructure:"build"`
	Serve   ServeConfig   `json:"serve" mapstructure:"serve"`
	Dev     DevConfig     `json:"dev" mapstructure:"dev"`
	Publish PublishConfig `json:"publish" mapstructure:"publish"`

	// configPath stores the path where the config was loaded from.
	configPath string
	dir        string
}

// BuildConfig contains site generation settings.
type BuildConfig struct {
	// Output is the output directory.
	Output string `json:"output,omitempty" mapstructure:"output"`

	// Template is an HTML page template containing <!--ssr-outlet-->.
	// Empty uses the built-in document.
	Template string `json:"template,omitempty" mapstructure:"template"`

	// Clean removes stale files by replacing the output directory
	// wholesale. When false, the new artifacts are written over the old.
	Clean bool `json:"clean" mapstructure:"clean"`
}

// ServeConfig contains production server settings.
type ServeConfig struct {
	Host string `json:"host,omitempty" mapstructure:"host"`
	Port int    `json:"port,omitempty" mapstructure:"port"`

	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool `json:"metrics" mapstructure:"metrics"`

	// Artifacts is the artifact location: a directory or s3://bucket/prefix.
	// Empty uses the build output directory.
	Artifacts string `json:"artifacts,omitempty" mapstructure:"artifacts"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	Host string `json:"host,omitempty" mapstructure:"host"`
	Port int    `json:"port,omitempty" mapstructure:"port"`

	// Watch contains paths whose changes trigger a browser reload.
	Watch []string `json:"watch,omitempty" mapstructure:"watch"`

	// Ignore contains glob patterns excluded from watching.
	Ignore []string `json:"ignore,omitempty" mapstructure:"ignore"`

	// HotReload injects the live-reload client into served pages.
	HotReload bool `json:"hotReload" mapstructure:"hotReload"`

	// Debounce is the quiet period before a batch of changes is reported.
	Debounce time.Duration `json:"debounce,omitempty" mapstructure:"debounce"`
}

// PublishConfig contains S3 upload settings.
type PublishConfig struct {
	Bucket         string `json:"bucket,omitempty" mapstructure:"bucket"`
	Region         string `json:"region,omitempty" mapstructure:"region"`
	Prefix         string `json:"prefix,omitempty" mapstructure:"prefix"`
	Endpoint       string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ForcePathStyle bool   `json:"forcePathStyle" mapstructure:"forcePathStyle"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Build: BuildConfig{
			Output: DefaultOutput,
			Clean:  true,
		},
		Serve: ServeConfig{
			Host:    "",
			Port:    DefaultServePort,
			Metrics: true,
		},
		Dev: DevConfig{
			Host:      DefaultHost,
			Port:      DefaultDevPort,
			Watch:     []string{"static"},
			Ignore:    []string{"*.tmp", "*~", ".#*"},
			HotReload: true,
			Debounce:  DefaultDebounce,
		},
	}
}

// newViper returns a viper instance seeded with every default so that
// environment overrides apply to keys absent from the file.
func newViper() *viper.Viper {
	v := viper.New()
	d := New()

	v.SetDefault("name", d.Name)
	v.SetDefault("build.output", d.Build.Output)
	v.SetDefault("build.template", d.Build.Template)
	v.SetDefault("build.clean", d.Build.Clean)
	v.SetDefault("serve.host", d.Serve.Host)
	v.SetDefault("serve.port", d.Serve.Port)
	v.SetDefault("serve.metrics", d.Serve.Metrics)
	v.SetDefault("serve.artifacts", d.Serve.Artifacts)
	v.SetDefault("dev.host", d.Dev.Host)
	v.SetDefault("dev.port", d.Dev.Port)
	v.SetDefault("dev.watch", d.Dev.Watch)
	v.SetDefault("dev.ignore", d.Dev.Ignore)
	v.SetDefault("dev.hotReload", d.Dev.HotReload)
	v.SetDefault("dev.debounce", d.Dev.Debounce)
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.forcePathStyle", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads matcha.json from dir. A missing file yields the defaults
// (with environment overrides applied) rooted at dir.
func Load(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return fromViper(newViper(), "", dir)
	}
	return cfg, err
}

// LoadFile reads configuration from the specified file path. The returned
// error wraps fs.ErrNotExist when the file is missing.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, merrors.New("E120").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON").
			Wrap(err)
	}
	return fromViper(v, path, filepath.Dir(path))
}

func fromViper(v *viper.Viper, path, dir string) (*Config, error) {
	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, merrors.New("E120").Wrap(err)
	}
	cfg.configPath = path
	cfg.dir = dir
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in values left empty by the file.
func (c *Config) applyDefaults() {
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = DefaultServePort
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultDevPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Debounce <= 0 {
		c.Dev.Debounce = DefaultDebounce
	}
	c.Publish.Prefix = strings.Trim(c.Publish.Prefix, "/")
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	for name, port := range map[string]int{"serve.port": c.Serve.Port, "dev.port": c.Dev.Port} {
		if port < 1 || port > 65535 {
			return merrors.New("E122").
				WithDetail(name + " is " + strconv.Itoa(port) + "; ports must be between 1 and 65535.")
		}
	}

	out := filepath.Clean(c.Build.Output)
	if filepath.IsAbs(out) || out == "." || out == ".." || strings.HasPrefix(out, ".."+string(filepath.Separator)) {
		return merrors.New("E123").
			WithSuggestion(`Use a directory such as "dist".`)
	}
	return nil
}

// ValidatePublish checks the settings required by publish.
func (c *Config) ValidatePublish() error {
	if c.Publish.Bucket == "" {
		return merrors.New("E121").
			WithSuggestion(`Add "publish": {"bucket": "..."} to ` + ConfigFileName)
	}
	return nil
}

// Path returns the path where the config was loaded from, or "" when the
// defaults are in use.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root.
func (c *Config) Dir() string {
	return c.dir
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// TemplatePath returns the absolute path to the page template, or "".
func (c *Config) TemplatePath() string {
	if c.Build.Template == "" {
		return ""
	}
	return c.resolve(c.Build.Template)
}

// WatchPaths returns the absolute paths watched in dev mode.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Dev.Watch))
	for _, p := range c.Dev.Watch {
		paths = append(paths, c.resolve(p))
	}
	return paths
}

// ArtifactLocation returns where serve reads artifacts from.
func (c *Config) ArtifactLocation() string {
	if c.Serve.Artifacts == "" {
		return c.OutputPath()
	}
	if strings.HasPrefix(c.Serve.Artifacts, "s3://") {
		return c.Serve.Artifacts
	}
	return c.resolve(c.Serve.Artifacts)
}

// ServeAddress returns host:port for the production server.
func (c *Config) ServeAddress() string {
	return c.Serve.Host + ":" + strconv.Itoa(c.Serve.Port)
}

// DevAddress returns host:port for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the dev server URL.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// matcha.json or, failing that, go.mod. It returns startDir itself when
// neither is found.
func FindProjectRoot(startDir string) (string, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	var moduleRoot string
	for dir := start; ; {
		if Exists(dir) {
			return dir, nil
		}
		if moduleRoot == "" {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				moduleRoot = dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if moduleRoot != "" {
		return moduleRoot, nil
	}
	return start, nil
}

// LoadFromWorkingDir loads the configuration of the project containing the
// working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
