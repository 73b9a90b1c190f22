package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type MongoCfg struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaCfg struct {
	Brokers  []string `mapstructure:"brokers"`
	TopicOut string   `mapstructure:"topic_out"`
	TopicIn  string   `mapstructure:"topic_in"`
	GroupID  string   `mapstructure:"group_id"`
}

type JWTCfg struct {
	Secret string `mapstructure:"secret"`
}

type BotCfg struct {
	Username     string `mapstructure:"username"`
	ReplyDelayMS int    `mapstructure:"reply_delay_ms"`
}

type RetentionCfg struct {
	MessageTTLHours      int `mapstructure:"message_ttl_hours"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

type Config struct {
	Development bool         `mapstructure:"development"`
	Server      ServerCfg    `mapstructure:"server"`
	Mongo       MongoCfg     `mapstructure:"mongo"`
	Redis       RedisCfg     `mapstructure:"redis"`
	Kafka       KafkaCfg     `mapstructure:"kafka"`
	JWT         JWTCfg       `mapstructure:"jwt"`
	Bot         BotCfg       `mapstructure:"bot"`
	Retention   RetentionCfg `mapstructure:"retention"`

	// Derived
	ReadTimeout   time.Duration `mapstructure:"-"`
	WriteTimeout  time.Duration `mapstructure:"-"`
	BotReplyDelay time.Duration `mapstructure:"-"`
	MessageTTL    time.Duration `mapstructure:"-"`
	SweepInterval time.Duration `mapstructure:"-"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "sociosphere")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_out", "chat.events")
	v.SetDefault("kafka.topic_in", "chat.events")
	v.SetDefault("kafka.group_id", "chat-service")
	v.SetDefault("bot.username", "sociobot")
	v.SetDefault("bot.reply_delay_ms", 1500)
	v.SetDefault("retention.message_ttl_hours", 48)
	v.SetDefault("retention.sweep_interval_minutes", 30)

	if err := v.ReadInConfig(); err != nil {
		// config file is optional; env + defaults must still work
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.BotReplyDelay = time.Duration(cfg.Bot.ReplyDelayMS) * time.Millisecond
	cfg.MessageTTL = time.Duration(cfg.Retention.MessageTTLHours) * time.Hour
	cfg.SweepInterval = time.Duration(cfg.Retention.SweepIntervalMinutes) * time.Minute
	return &cfg, nil
}
