// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// v 是 Init 使用的 viper 实例，WatchShards 依赖它监听配置文件变化。
var v *viper.Viper

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Search        SearchConfig        `mapstructure:"search"`
	Syncback      SyncbackConfig      `mapstructure:"syncback"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Mode     string `mapstructure:"mode"`
	AdminKey string `mapstructure:"admin_key"`
}

// DatabaseConfig 存储所有数据库连接的配置。
// Hosts 列出每台 MySQL 主机及其承载的分片。
type DatabaseConfig struct {
	Hosts           []DatabaseHostConfig `mapstructure:"hosts"`
	Redis           RedisConfig          `mapstructure:"redis"`
	MaxIdleConns    int                  `mapstructure:"max_idle_conns"`
	MaxOpenConns    int                  `mapstructure:"max_open_conns"`
	ConnMaxLifetime int                  `mapstructure:"conn_max_lifetime_minutes"`
}

// DatabaseHostConfig 描述一台数据库主机。
type DatabaseHostConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Shards   []ShardConfig `mapstructure:"shards"`
}

// ShardConfig 描述主机上的单个分片。
// Open 表示是否接受新账号，Disabled 的分片即使 Open 也不会被选中。
type ShardConfig struct {
	ID         int    `mapstructure:"id"`
	SchemaName string `mapstructure:"schema_name"`
	Open       bool   `mapstructure:"open"`
	Disabled   bool   `mapstructure:"disabled"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers       string `mapstructure:"brokers"`
	IndexTopic    string `mapstructure:"index_topic"`
	SyncbackTopic string `mapstructure:"syncback_topic"`
	GroupID       string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
// 每个 namespace 使用独立的索引，名称为 IndexPrefix-<namespace>。
type ElasticsearchConfig struct {
	Addresses   string `mapstructure:"addresses"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	IndexPrefix string `mapstructure:"index_prefix"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，原始邮件正文保存在这里。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// SearchConfig 存储查询编译相关的配置。
type SearchConfig struct {
	Boost        bool `mapstructure:"boost"`
	MinChildren  int  `mapstructure:"min_children"`
	DefaultLimit int  `mapstructure:"default_limit"`
	MaxLimit     int  `mapstructure:"max_limit"`
}

// SyncbackConfig 存储 syncback worker 的配置。
type SyncbackConfig struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	BatchSize      int `mapstructure:"batch_size"`
	LeaseSeconds   int `mapstructure:"lease_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime_minutes", 60)
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.index_topic", "mailsync-index")
	v.SetDefault("kafka.syncback_topic", "mailsync-syncback")
	v.SetDefault("kafka.group_id", "mailsync-indexer")
	v.SetDefault("elasticsearch.index_prefix", "mailsync")
	v.SetDefault("search.boost", true)
	v.SetDefault("search.min_children", 1)
	v.SetDefault("search.default_limit", 40)
	v.SetDefault("search.max_limit", 200)
	v.SetDefault("syncback.poll_interval_ms", 1000)
	v.SetDefault("syncback.batch_size", 100)
	v.SetDefault("syncback.lease_seconds", 30)
	v.SetDefault("syncback.max_retries", 3)
}

func newViper(configPath string) *viper.Viper {
	nv := viper.New()
	nv.SetConfigFile(configPath)
	nv.SetConfigType("yaml")
	nv.SetEnvPrefix("MAILSYNC")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()
	setDefaults(nv)
	return nv
}

// Load 读取指定路径的 YAML 文件并返回解析后的配置。
func Load(configPath string) (*Config, error) {
	nv := newViper(configPath)
	if err := nv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var cfg Config
	if err := nv.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	nv := newViper(configPath)
	if err := nv.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}
	if err := nv.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
	v = nv
}

// WatchShards 监听配置文件变化，并在每次变化后把最新的分片列表交给 onChange。
// 解析失败的变更会交给 onError，当前生效的分片列表保持不变。
func WatchShards(onChange func([]DatabaseHostConfig), onError func(error)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		var db DatabaseConfig
		if err := v.UnmarshalKey("database", &db); err != nil {
			onError(fmt.Errorf("重新解析分片配置失败 (%s): %w", e.Name, err))
			return
		}
		onChange(db.Hosts)
	})
	v.WatchConfig()
}
