package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
	RequestSecond  int    `mapstructure:"request_timeout_seconds"`
}

type MongoConf struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type JWTConf struct {
	Secret         string `mapstructure:"secret"`
	AccessTTLMin   int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHour int    `mapstructure:"refresh_ttl_hours"`
}

type AWSConf struct {
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`
	Endpoint string `mapstructure:"endpoint"`
}

type S3Conf struct {
	PublicRead    bool `mapstructure:"public_read"`
	UploadTimeout int  `mapstructure:"upload_timeout_seconds"`
}

type RedisConf struct {
	Addr               string `mapstructure:"addr"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db"`
	LoginLimit         int    `mapstructure:"login_limit"`
	LoginWindowSeconds int    `mapstructure:"login_window_seconds"`
}

type NATSConf struct {
	URL string `mapstructure:"url"`
}

type MetricsConf struct {
	Port int `mapstructure:"port"`
}

type Config struct {
	App     AppConf     `mapstructure:"app"`
	Mongo   MongoConf   `mapstructure:"mongodb"`
	JWT     JWTConf     `mapstructure:"jwt"`
	AWS     AWSConf     `mapstructure:"aws"`
	S3      S3Conf      `mapstructure:"s3"`
	Redis   RedisConf   `mapstructure:"redis"`
	NATS    NATSConf    `mapstructure:"nats"`
	Metrics MetricsConf `mapstructure:"metrics"`

	// derived
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	UploadTimeout   time.Duration
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	LoginWindow     time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8000
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	if cfg.App.RequestSecond == 0 {
		cfg.App.RequestSecond = 10
	}
	if cfg.JWT.AccessTTLMin == 0 {
		cfg.JWT.AccessTTLMin = 15
	}
	if cfg.JWT.RefreshTTLHour == 0 {
		cfg.JWT.RefreshTTLHour = 240
	}
	if cfg.S3.UploadTimeout == 0 {
		cfg.S3.UploadTimeout = 30
	}
	if cfg.Redis.LoginLimit == 0 {
		cfg.Redis.LoginLimit = 10
	}
	if cfg.Redis.LoginWindowSeconds == 0 {
		cfg.Redis.LoginWindowSeconds = 60
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	cfg.RequestTimeout = time.Duration(cfg.App.RequestSecond) * time.Second
	cfg.UploadTimeout = time.Duration(cfg.S3.UploadTimeout) * time.Second
	cfg.AccessTTL = time.Duration(cfg.JWT.AccessTTLMin) * time.Minute
	cfg.RefreshTTL = time.Duration(cfg.JWT.RefreshTTLHour) * time.Hour
	cfg.LoginWindow = time.Duration(cfg.Redis.LoginWindowSeconds) * time.Second
	return &cfg, nil
}
