package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Log             LogConfig             `mapstructure:"log"`
	Minio           MinioConfig           `mapstructure:"minio"`
	Upload          UploadConfig          `mapstructure:"upload"`
	Merge           MergeConfig           `mapstructure:"merge"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Public          PublicConfig          `mapstructure:"public"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	BootstrapServers     []string          `mapstructure:"bootstrap_servers"`
	ClientID             string            `mapstructure:"client_id"`
	GroupID              string            `mapstructure:"group_id"`
	Enabled              bool              `mapstructure:"enabled"`
	Topics               KafkaTopicsConfig `mapstructure:"topics"`
	CommitOnDecodeError  bool              `mapstructure:"commit_on_decode_error"`
	CommitOnProcessError bool              `mapstructure:"commit_on_process_error"`
}

// KafkaTopicsConfig 主题配置
type KafkaTopicsConfig struct {
	MergeRequests string `mapstructure:"merge_requests"`
	MergeEvents   string `mapstructure:"merge_events"`
}

// ServiceRegistryConfig 服务注册配置
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Endpoints       []string      `mapstructure:"endpoints"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// PublicConfig 对外访问配置
type PublicConfig struct {
	StorageBase string `mapstructure:"storage_base"`
}

// UploadConfig 分片上传配置
type UploadConfig struct {
	AllowedMimeTypes []string      `mapstructure:"allowed_mime_types"`
	MaxFileSize      int64         `mapstructure:"max_file_size"`
	DefaultChunkSize int64         `mapstructure:"default_chunk_size"`
	MinChunkSize     int64         `mapstructure:"min_chunk_size"`
	MaxChunkSize     int64         `mapstructure:"max_chunk_size"`
	TempDir          string        `mapstructure:"temp_dir"`
	SessionTTL       time.Duration `mapstructure:"session_ttl"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
}

// MergeConfig 合并管线配置
type MergeConfig struct {
	FFmpeg         FFmpegConfig            `mapstructure:"ffmpeg"`
	QualityPresets map[string]PresetParams `mapstructure:"quality_presets"`
	DeleteSources  bool                    `mapstructure:"delete_sources"`
}

// PresetParams 单个质量档位的编码参数
type PresetParams struct {
	CRF          int    `mapstructure:"crf"`
	VideoBitrate string `mapstructure:"video_bitrate"`
	AudioBitrate string `mapstructure:"audio_bitrate"`
	Preset       string `mapstructure:"preset"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath   string        `mapstructure:"binary_path"`
	ProbePath    string        `mapstructure:"probe_path"`
	TempDir      string        `mapstructure:"temp_dir"`
	StageTimeout time.Duration `mapstructure:"stage_timeout"`
	VideoCodec   string        `mapstructure:"video_codec"`
	AudioCodec   string        `mapstructure:"audio_codec"`
	Threads      int           `mapstructure:"threads"`
}

// WorkerConfig Worker相关配置
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	MaxConcurrentMerges int           `mapstructure:"max_concurrent_merges"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	RecoveryInterval    time.Duration `mapstructure:"recovery_interval"`
	StuckThreshold      time.Duration `mapstructure:"stuck_threshold"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	ExpireTime time.Duration `mapstructure:"expire_time"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("service_registry.enabled", true)
	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.client_id", "merge-service")
	viper.SetDefault("kafka.group_id", "merge-service-group")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.merge_requests", "merge.requests")
	viper.SetDefault("kafka.topics.merge_events", "merge.events")

	// 设置环境变量前缀
	viper.SetEnvPrefix("GO_MERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// 解析配置
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	if len(c.Upload.AllowedMimeTypes) == 0 {
		c.Upload.AllowedMimeTypes = []string{"video/mp4", "video/quicktime", "video/webm"}
	}
	if c.Upload.MaxFileSize <= 0 {
		c.Upload.MaxFileSize = 100 << 20
	}
	if c.Upload.DefaultChunkSize <= 0 {
		c.Upload.DefaultChunkSize = 1 << 20
	}
	if c.Upload.MinChunkSize <= 0 {
		c.Upload.MinChunkSize = 64 << 10
	}
	if c.Upload.MaxChunkSize <= 0 {
		c.Upload.MaxChunkSize = 16 << 20
	}
	if c.Upload.TempDir == "" {
		c.Upload.TempDir = "/tmp/merge-service/uploads"
	}
	if c.Upload.SessionTTL == 0 {
		c.Upload.SessionTTL = 24 * time.Hour
	}
	if c.Upload.CleanupInterval == 0 {
		c.Upload.CleanupInterval = 10 * time.Minute
	}

	if len(c.Merge.QualityPresets) == 0 {
		c.Merge.QualityPresets = map[string]PresetParams{
			"high":   {CRF: 18, VideoBitrate: "4000k", AudioBitrate: "192k", Preset: "slow"},
			"medium": {CRF: 23, VideoBitrate: "2000k", AudioBitrate: "128k", Preset: "medium"},
			"low":    {CRF: 28, VideoBitrate: "800k", AudioBitrate: "96k", Preset: "fast"},
		}
	}
	if c.Merge.FFmpeg.TempDir == "" {
		c.Merge.FFmpeg.TempDir = "/tmp/merge-service/merge"
	}
	if c.Merge.FFmpeg.BinaryPath == "" {
		c.Merge.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.Merge.FFmpeg.ProbePath == "" {
		c.Merge.FFmpeg.ProbePath = "ffprobe"
	}
	if c.Merge.FFmpeg.VideoCodec == "" {
		c.Merge.FFmpeg.VideoCodec = "libx264"
	}
	if c.Merge.FFmpeg.AudioCodec == "" {
		c.Merge.FFmpeg.AudioCodec = "aac"
	}
	if c.Merge.FFmpeg.Threads < 0 {
		c.Merge.FFmpeg.Threads = 0
	}
	if c.Merge.FFmpeg.StageTimeout == 0 {
		c.Merge.FFmpeg.StageTimeout = 30 * time.Minute
	}

	// Worker相关默认值
	if c.Worker.MaxConcurrentMerges <= 0 {
		c.Worker.MaxConcurrentMerges = 2
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.MaxConcurrentMerges * 10
	}
	if c.Worker.RecoveryInterval == 0 {
		c.Worker.RecoveryInterval = 30 * time.Second
	}
	if c.Worker.StuckThreshold == 0 {
		c.Worker.StuckThreshold = time.Hour
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}

	if c.ServiceRegistry.ServiceName == "" {
		c.ServiceRegistry.ServiceName = "merge-service"
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "merge-service"
	}
	if c.Kafka.Topics.MergeRequests == "" {
		c.Kafka.Topics.MergeRequests = "merge.requests"
	}
	if c.Kafka.Topics.MergeEvents == "" {
		c.Kafka.Topics.MergeEvents = "merge.events"
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetMinioEndpoint 获取MinIO访问地址
func (c *MinioConfig) GetMinioEndpoint() string {
	return c.Endpoint
}

// IsMimeTypeAllowed 检查MIME类型是否在允许列表内
func (c *UploadConfig) IsMimeTypeAllowed(mimeType string) bool {
	for _, m := range c.AllowedMimeTypes {
		if strings.EqualFold(strings.TrimSpace(m), strings.TrimSpace(mimeType)) {
			return true
		}
	}
	return false
}

// ResolvePreset 返回质量档位参数，未配置档位时回退到medium
func (c *MergeConfig) ResolvePreset(name string) PresetParams {
	if p, ok := c.QualityPresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	if p, ok := c.QualityPresets["medium"]; ok {
		return p
	}
	return PresetParams{CRF: 23, VideoBitrate: "2000k", AudioBitrate: "128k", Preset: "medium"}
}
