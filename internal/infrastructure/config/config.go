package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/davarch/fossa-gate/internal/domain"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "http://app.fossa.io/"
	DefaultPollTimeout    = 30 * time.Minute
	DefaultRequestTimeout = 5 * time.Second

	// PingInterval is the fixed wait between two status requests.
	PingInterval = 10 * time.Second
)

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Revision struct {
		Project string `yaml:"project"`
		Commit  string `yaml:"commit"`
		Locator string `yaml:"locator,omitempty"`
	} `yaml:"revision"`

	Poll struct {
		Timeout   time.Duration `yaml:"timeout"`
		Interval  time.Duration `yaml:"-"`
		AbortFile string        `yaml:"abort_file,omitempty"`
	} `yaml:"poll"`

	Report struct {
		Path string `yaml:"path,omitempty"`
	} `yaml:"report"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	var c Config
	c.API.BaseURL = DefaultBaseURL
	c.API.Timeout = DefaultRequestTimeout
	c.Poll.Timeout = DefaultPollTimeout
	c.Poll.Interval = PingInterval
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}

// Load merges defaults, the config file at path (optional), and the
// environment. It does not validate; call Validate once flags are applied.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, b, &c); err != nil {
				return c, &domain.ConfigError{Err: fmt.Errorf("%s: %w", path, err)}
			}
		case !errors.Is(err, os.ErrNotExist):
			return c, &domain.ConfigError{Err: err}
		}
	}

	if v := os.Getenv("FOSSA_ENDPOINT_URL"); v != "" {
		c.API.BaseURL = v
	}

	if v := os.Getenv("FOSSA_API_TOKEN"); v != "" {
		c.API.Token = v
	}

	if v := os.Getenv("FOSSA_REQUEST_TIMEOUT"); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return c, &domain.ConfigError{Err: fmt.Errorf("FOSSA_REQUEST_TIMEOUT: %w", err)}
		}
		c.API.Timeout = d
	}

	if v := os.Getenv("FOSSA_POLL_TIMEOUT"); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return c, &domain.ConfigError{Err: fmt.Errorf("FOSSA_POLL_TIMEOUT: %w", err)}
		}
		c.Poll.Timeout = d
	}

	if v := os.Getenv("CIRCLE_REPOSITORY_URL"); v != "" {
		c.Revision.Project = v
	}

	if v := os.Getenv("CIRCLE_SHA1"); v != "" {
		c.Revision.Commit = v
	}

	if v := os.Getenv("FOSSA_LOCATOR"); v != "" {
		c.Revision.Locator = v
	}

	if v := os.Getenv("FOSSA_REPORT_PATH"); v != "" {
		c.Report.Path = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	c.Poll.AbortFile = expandHome(c.Poll.AbortFile)
	c.Report.Path = expandHome(c.Report.Path)

	return c, nil
}

// Validate checks the fields a gate run cannot do without.
func (c Config) Validate() error {
	if c.API.Token == "" {
		return &domain.ConfigError{Err: errors.New("environment variable 'FOSSA_API_TOKEN' not found")}
	}

	if c.API.BaseURL == "" {
		return &domain.ConfigError{Err: errors.New("api base url is empty")}
	}

	if c.Locator() == "" {
		return &domain.ConfigError{Err: errors.New("revision locator is required (set FOSSA_LOCATOR or CIRCLE_REPOSITORY_URL and CIRCLE_SHA1)")}
	}

	if c.Poll.Timeout <= 0 {
		return &domain.ConfigError{Err: fmt.Errorf("poll timeout must be positive, got %s", c.Poll.Timeout)}
	}

	if c.API.Timeout <= 0 {
		return &domain.ConfigError{Err: fmt.Errorf("request timeout must be positive, got %s", c.API.Timeout)}
	}

	return nil
}

// Locator is the explicit locator or "git+<project>$<commit>".
func (c Config) Locator() string {
	if c.Revision.Locator != "" {
		return c.Revision.Locator
	}
	if c.Revision.Project == "" || c.Revision.Commit == "" {
		return ""
	}
	return "git+" + c.Revision.Project + "$" + c.Revision.Commit
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	if c.API.Token != "" {
		c.API.Token = "********"
	}
	return c
}

// ParseTimeout accepts integer milliseconds or a Go duration string.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", ms)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := encode(path, c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// TOML files are decoded into a generic tree and fed through the YAML
// decoder, so both formats share the yaml tags and duration parsing.
func decode(path string, b []byte, c *Config) error {
	if !isTOML(path) {
		return yaml.Unmarshal(b, c)
	}

	var raw map[string]any
	if err := toml.Unmarshal(b, &raw); err != nil {
		return err
	}
	y, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(y, c)
}

func encode(path string, c Config) ([]byte, error) {
	y, err := yaml.Marshal(&c)
	if err != nil {
		return nil, err
	}
	if !isTOML(path) {
		return y, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal(y, &raw); err != nil {
		return nil, err
	}
	return toml.Marshal(raw)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
