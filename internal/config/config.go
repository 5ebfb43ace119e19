package config

// Config 全局配置
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig HTTP服务器配置
type HTTPConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
}

// WebhookConfig Webhook配置
type WebhookConfig struct {
	// BaseURL 对外暴露的回调地址前缀，用于拼接各平台的 webhook 地址
	// 如: https://chat.example.com
	BaseURL string `mapstructure:"base_url"`
}
