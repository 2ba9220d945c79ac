package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode          string `mapstructure:"mode"`
	LogLevel      string `mapstructure:"log_level"`
	InspectPort   int    `mapstructure:"inspect_port"`
	InspectSecret string `mapstructure:"inspect_secret"`

	RoomID      string `mapstructure:"room_id"`
	UserID      string `mapstructure:"user_id"`
	DisplayName string `mapstructure:"display_name"`

	Channel  ChannelConfig  `mapstructure:"channel"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Session  SessionConfig  `mapstructure:"session"`
	Devices  DevicesConfig  `mapstructure:"devices"`
}

type ChannelConfig struct {
	URL               string        `mapstructure:"url"`
	SendBuffer        int           `mapstructure:"send_buffer"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	ReadLimit         int64         `mapstructure:"read_limit"`
	ReconnectBase     time.Duration `mapstructure:"reconnect_base"`
	ReconnectMaxDelay time.Duration `mapstructure:"reconnect_max_delay"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
}

type SnapshotConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	ChatTail int           `mapstructure:"chat_tail"`
}

type SessionConfig struct {
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	ReactionTTL    time.Duration `mapstructure:"reaction_ttl"`
	CursorInterval time.Duration `mapstructure:"cursor_interval"`
	EraserRadius   float64       `mapstructure:"eraser_radius"`
	CanvasWidth    int           `mapstructure:"canvas_width"`
	CanvasHeight   int           `mapstructure:"canvas_height"`
}

type DevicesConfig struct {
	Granted  bool   `mapstructure:"granted"`
	AudioIn  string `mapstructure:"audio_in"`
	VideoIn  string `mapstructure:"video_in"`
	AudioOut string `mapstructure:"audio_out"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("inspect_port", 8090)
	v.SetDefault("inspect_secret", "seminar-inspector")
	v.SetDefault("room_id", "")
	v.SetDefault("user_id", "")
	v.SetDefault("display_name", "")
	v.SetDefault("snapshot.token", "")

	v.SetDefault("channel.url", "ws://localhost:8080/api/ws/session")
	v.SetDefault("channel.send_buffer", 64)
	v.SetDefault("channel.write_timeout", "5s")
	v.SetDefault("channel.ping_period", "54s")
	v.SetDefault("channel.read_limit", 1<<20)
	v.SetDefault("channel.reconnect_base", "500ms")
	v.SetDefault("channel.reconnect_max_delay", "10s")
	v.SetDefault("channel.reconnect_attempts", 8)

	v.SetDefault("snapshot.base_url", "http://localhost:8080/api")
	v.SetDefault("snapshot.timeout", "10s")
	v.SetDefault("snapshot.chat_tail", 50)

	v.SetDefault("session.command_timeout", "10s")
	v.SetDefault("session.reaction_ttl", "3s")
	v.SetDefault("session.cursor_interval", "50ms")
	v.SetDefault("session.eraser_radius", 8)
	v.SetDefault("session.canvas_width", 1280)
	v.SetDefault("session.canvas_height", 720)

	v.SetDefault("devices.granted", true)
	v.SetDefault("devices.audio_in", "Synthetic Microphone")
	v.SetDefault("devices.video_in", "Synthetic Camera")
	v.SetDefault("devices.audio_out", "Synthetic Speaker")
}

// Load reads config/config.<CONFIG_ENV>.yaml on top of the defaults.
// SEMINAR_* environment variables override both, e.g.
// SEMINAR_CHANNEL_URL for channel.url.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix("SEMINAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("channel", cfg.Channel.URL).Int("inspect_port", cfg.InspectPort).Msg("config ready")
	return &cfg, nil
}
