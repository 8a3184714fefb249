package config

import "time"

// Room definition room_service YAML structure
type Room struct {
	Port string `mapstructure:"port"`

	// StorageDir holds one sqlite database file per room.
	StorageDir      string `mapstructure:"storage_dir"`
	HistoryPageSize int    `mapstructure:"history_page_size"`
	SendBuffer      int    `mapstructure:"send_buffer"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RoomAPI definition room_api YAML structure
type RoomAPI struct {
	Port string `mapstructure:"port"`

	// RoomLimit caps how many rooms a single user may own.
	RoomLimit int `mapstructure:"room_limit"`

	PostgreSQL  DatabaseConfig `mapstructure:"pg"`
	MinIO       MinIOConfig    `mapstructure:"minio"`
	RoomService ServiceConfig  `mapstructure:"room"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition object storage setting
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}
