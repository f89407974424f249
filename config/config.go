package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type Config struct {
	App       App           `yaml:"app"`
	Server    Server        `yaml:"server"`
	Recording Recording     `yaml:"recording"`
	Clips     Clips         `yaml:"clips"`
	Upload    Upload        `yaml:"upload"`
	Monitor   Monitor       `yaml:"monitor"`
	Archive   Archive       `yaml:"archive"`
	DB        *sql.DB       `yaml:"db"`
	Queue     *RabbitMQ     `yaml:"rabbitmq"`
	Storage   *minio.Client `yaml:"storage"`
	Cache     *redis.Client `yaml:"cache"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type Recording struct {
	Dir             string        `yaml:"dir"`
	SegmentDuration time.Duration `yaml:"segment_duration"`
	PassInterval    time.Duration `yaml:"pass_interval"`
	AutoDelete      bool          `yaml:"auto_delete"`
	ObsAddr         string        `yaml:"obs_addr"`
	ObsPassword     string        `yaml:"obs_password"`
}

type Clips struct {
	Dir             string        `yaml:"dir"`
	PreBuffer       float64       `yaml:"pre_buffer"`
	PostBuffer      float64       `yaml:"post_buffer"`
	ThumbnailOffset float64       `yaml:"thumbnail_offset"`
	PassInterval    time.Duration `yaml:"pass_interval"`
}

type Upload struct {
	AutoPost        bool          `yaml:"auto_post"`
	MaxPartDuration float64       `yaml:"max_part_duration"`
	PassInterval    time.Duration `yaml:"pass_interval"`
}

type Monitor struct {
	CheckInterval      time.Duration `yaml:"check_interval"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	TwitchClientID     string        `yaml:"twitch_client_id"`
	TwitchClientSecret string        `yaml:"twitch_client_secret"`
	YouTubeAPIKey      string        `yaml:"youtube_api_key"`
}

type Archive struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("recording.segment_duration", "1h")
	viper.SetDefault("recording.pass_interval", "60s")
	viper.SetDefault("recording.auto_delete", true)
	viper.SetDefault("clips.pre_buffer", 10.0)
	viper.SetDefault("clips.post_buffer", 5.0)
	viper.SetDefault("clips.thumbnail_offset", 1.0)
	viper.SetDefault("clips.pass_interval", "5s")
	viper.SetDefault("upload.max_part_duration", 60.0)
	viper.SetDefault("upload.pass_interval", "5s")
	viper.SetDefault("monitor.check_interval", "60s")
	viper.SetDefault("monitor.request_timeout", "10s")
	viper.SetDefault("server.workers", 4)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	cache := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	return &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		Recording: Recording{
			Dir:             viper.GetString("recording.dir"),
			SegmentDuration: viper.GetDuration("recording.segment_duration"),
			PassInterval:    viper.GetDuration("recording.pass_interval"),
			AutoDelete:      viper.GetBool("recording.auto_delete"),
			ObsAddr:         viper.GetString("recording.obs_addr"),
			ObsPassword:     viper.GetString("recording.obs_password"),
		},
		Clips: Clips{
			Dir:             viper.GetString("clips.dir"),
			PreBuffer:       viper.GetFloat64("clips.pre_buffer"),
			PostBuffer:      viper.GetFloat64("clips.post_buffer"),
			ThumbnailOffset: viper.GetFloat64("clips.thumbnail_offset"),
			PassInterval:    viper.GetDuration("clips.pass_interval"),
		},
		Upload: Upload{
			AutoPost:        viper.GetBool("upload.auto_post"),
			MaxPartDuration: viper.GetFloat64("upload.max_part_duration"),
			PassInterval:    viper.GetDuration("upload.pass_interval"),
		},
		Monitor: Monitor{
			CheckInterval:      viper.GetDuration("monitor.check_interval"),
			RequestTimeout:     viper.GetDuration("monitor.request_timeout"),
			TwitchClientID:     viper.GetString("monitor.twitch_client_id"),
			TwitchClientSecret: viper.GetString("monitor.twitch_client_secret"),
			YouTubeAPIKey:      viper.GetString("monitor.youtube_api_key"),
		},
		Archive: Archive{
			Enabled: viper.GetBool("archive.enabled"),
			Bucket:  viper.GetString("archive.bucket"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
		Cache:   cache,
	}, nil
}
