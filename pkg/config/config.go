package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"

	derrors "github.com/hanfei1991/sendtask/pkg/errors"
)

const (
	// SchedulerHost is always an IPv4 literal so that no name resolution is
	// needed, which statically linked builds cannot do.
	SchedulerHost = "127.0.0.1"
	// DefaultSchedulerPort is used when neither the environment nor the
	// config file names a port.
	DefaultSchedulerPort = "4444"

	defaultLogLevel = "warn"

	// PortEnvKey overrides the scheduler port.
	PortEnvKey = "JOB_SCHEDULER_PORT"
	// ConfigFileEnvKey points to an optional TOML config file.
	ConfigFileEnvKey = "JOB_SCHEDULER_CONFIG"
)

// LookupEnvFunc has the signature of os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// Config is the process-wide configuration of send-task. It is computed
// once at startup by Load and passed by value afterwards.
type Config struct {
	// Port is kept as the raw decimal string; it is not validated before use.
	Port string `toml:"port" json:"port"`

	LogLevel string `toml:"log-level" json:"log-level"`
	LogFile  string `toml:"log-file" json:"log-file"`

	ConfigFile string `toml:"-" json:"config-file"`
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		Port:     DefaultSchedulerPort,
		LogLevel: defaultLogLevel,
	}
}

// Load builds the configuration from defaults, the optional config file
// and the environment, in that order of increasing precedence.
func Load(lookup LookupEnvFunc) (Config, error) {
	cfg := NewConfig()
	if path, ok := lookup(ConfigFileEnvKey); ok && path != "" {
		cfg.ConfigFile = path
		if err := cfg.configFromFile(path); err != nil {
			return Config{}, err
		}
	}
	if port, ok := lookup(PortEnvKey); ok && port != "" {
		cfg.Port = port
	}
	cfg.adjust()
	return cfg, nil
}

// Endpoint returns the URL the job spec is posted to.
func (c Config) Endpoint() string {
	return fmt.Sprintf("http://%s:%s/", SchedulerHost, c.Port)
}

func (c Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", struct{ Port, LogLevel, LogFile string }{c.Port, c.LogLevel, c.LogFile})
	}
	return string(cfg)
}

// tomlText returns TOML format representation of config.
func (c Config) tomlText() (string, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return "", errors.Trace(err)
	}
	return b.String(), nil
}

func (c *Config) adjust() {
	if c.Port == "" {
		c.Port = DefaultSchedulerPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// configFromFile loads config from file.
func (c *Config) configFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return derrors.Wrap(derrors.ErrConfigDecodeFile, err, path)
	}
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return derrors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(undecodedItems, ","))
	}
	return nil
}
