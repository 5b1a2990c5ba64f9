package gjinverse

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// WorkerRankHeaderName is the HTTP header a remote worker uses to announce
// its rank when it opens the websocket.
const WorkerRankHeaderName = "X-Worker-Rank"

// ConnConfig configures the coordinator side of worker connections.
type ConnConfig struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration `yaml:"writeWait"`

	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration `yaml:"pongWait"`

	// Send pings to peer with this period. Must be less than PongWait.
	PingPeriod time.Duration `yaml:"pingPeriod"`

	// Maximum message size allowed from peer. A Rows message for an n x n
	// matrix is roughly 16*n*n bytes.
	MaxMessageSize int64 `yaml:"maxMessageSize"`

	// Buffer length of the outbound and inbound message channels.
	SendChannelLength int `yaml:"sendChannelLength"`
}

// DefaultConnConfig returns the default ConnConfig.
func DefaultConnConfig() ConnConfig {
	pongWait := 60 * time.Second
	return ConnConfig{
		WriteWait:         10 * time.Second,
		PongWait:          pongWait,
		PingPeriod:        (pongWait * 9) / 10,
		MaxMessageSize:    64 << 20,
		SendChannelLength: 256,
	}
}

// WorkerConfig configures a remote worker.
type WorkerConfig struct {
	MaxMessageSize          int64         `yaml:"maxMessageSize"`
	SendChannelLength       int           `yaml:"sendChannelLength"`
	DelayAfterSendingClose  time.Duration `yaml:"delayAfterSendingClose"`
	DelayBeforeReconnecting time.Duration `yaml:"delayBeforeReconnecting"`
}

// DefaultWorkerConfig returns the default WorkerConfig.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxMessageSize:          64 << 20,
		SendChannelLength:       256,
		DelayAfterSendingClose:  time.Second,
		DelayBeforeReconnecting: time.Second,
	}
}

// Config is the configuration shared by the coordinator and worker commands.
type Config struct {
	Addr      string       `yaml:"addr"`
	Size      int          `yaml:"size"`
	Tolerance float64      `yaml:"tolerance"`
	Precision int          `yaml:"precision"`
	Progress  bool         `yaml:"progress"`
	Conn      ConnConfig   `yaml:"conn"`
	Worker    WorkerConfig `yaml:"worker"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:8080",
		Size:      1,
		Precision: 2,
		Conn:      DefaultConnConfig(),
		Worker:    DefaultWorkerConfig(),
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Keys missing from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, errors.Wrapf(err, "parse config %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Validate checks the values that would otherwise fail late, at connection
// or partition time.
func (c Config) Validate() error {
	switch {
	case c.Size < 1:
		return errors.Errorf("size must be at least 1, got %d", c.Size)
	case c.Precision < 0:
		return errors.Errorf("precision must not be negative, got %d", c.Precision)
	case c.Tolerance < 0:
		return errors.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	case c.Conn.PingPeriod >= c.Conn.PongWait:
		return errors.Errorf("conn.pingPeriod %s must be less than conn.pongWait %s", c.Conn.PingPeriod, c.Conn.PongWait)
	case c.Conn.SendChannelLength < 1:
		return errors.Errorf("conn.sendChannelLength must be at least 1, got %d", c.Conn.SendChannelLength)
	case c.Conn.MaxMessageSize <= 0:
		return errors.Errorf("conn.maxMessageSize must be positive, got %d", c.Conn.MaxMessageSize)
	case c.Worker.SendChannelLength < 1:
		return errors.Errorf("worker.sendChannelLength must be at least 1, got %d", c.Worker.SendChannelLength)
	case c.Worker.MaxMessageSize <= 0:
		return errors.Errorf("worker.maxMessageSize must be positive, got %d", c.Worker.MaxMessageSize)
	}
	return nil
}
