// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 全局配置变量，由 Init 填充。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Advisor   AdvisorConfig   `mapstructure:"advisor"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig 控制会话的存储后端与会话令牌。
type SessionConfig struct {
	// Store 取值 "memory" 或 "redis"
	Store       string        `mapstructure:"store"`
	TTL         time.Duration `mapstructure:"ttl"`
	TurnLockTTL time.Duration `mapstructure:"turn_lock_ttl"`
	TokenSecret string        `mapstructure:"token_secret"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	// Provider 取值 "gemini"、"openai" 或 "mock"
	Provider   string              `mapstructure:"provider"`
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 是进程级固定的生成参数，用户不可调整。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// KnowledgeConfig 指定参考文档的来源。
type KnowledgeConfig struct {
	// Source 取值 "summary"、"full"、"file" 或 "minio"
	Source string      `mapstructure:"source"`
	Path   string      `mapstructure:"path"`
	MinIO  MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	ObjectName      string `mapstructure:"object_name"`
}

// AdvisorConfig 存储会话中固定展示给学生的文案。
type AdvisorConfig struct {
	Greeting string `mapstructure:"greeting"`
}

// ConfigurationError 表示启动阶段无法恢复的配置问题，例如缺少 API 密钥。
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// MissingAPIKeyMessage 是缺少凭证时唯一展示给用户的提示。
const MissingAPIKeyMessage = "⚠️ Erreur de Configuration: La clé API Google n'est pas définie. L'application ne peut pas fonctionner. Veuillez contacter l'administrateur (Cherif Tas)."

// DefaultGreeting 是新会话与清空后的第一条助手消息。
const DefaultGreeting = "Bonjour ! Félicitations pour avoir terminé le cycle préparatoire. Comment vous sentez-vous à l'approche de ce choix important entre DMS et DIB ?"

const envPrefix = "ADVISOR"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.turn_lock_ttl", 10*time.Minute)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-1.5-pro-latest")
	v.SetDefault("llm.generation.temperature", 0.6)
	v.SetDefault("llm.generation.max_tokens", 1536)
	v.SetDefault("knowledge.source", "summary")
	v.SetDefault("advisor.greeting", DefaultGreeting)
}

// Load 读取 YAML 配置文件（可为空），叠加环境变量与可选的 .env 文件。
// 只有文件损坏才会返回错误；缺少凭证由 Validate 报告。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", envPrefix+"_LLM_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		key, err := apiKeyFromDotEnv(".env")
		if err != nil {
			return nil, err
		}
		cfg.LLM.APIKey = key
	}
	return &cfg, nil
}

// apiKeyFromDotEnv 从 .env 文件中读取 GOOGLE_API_KEY，文件不存在时返回空字符串。
func apiKeyFromDotEnv(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return "", fmt.Errorf("读取 .env 文件失败: %w", err)
	}
	return env.GetString("GOOGLE_API_KEY"), nil
}

// Init 加载配置并写入全局 Conf。
func Init(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	Conf = *cfg
	return nil
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
	case "gemini", "openai":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return &ConfigurationError{Field: "llm.api_key", Message: MissingAPIKeyMessage}
		}
		if c.LLM.Provider == "openai" && c.LLM.BaseURL == "" {
			return &ConfigurationError{Field: "llm.base_url", Message: "llm.base_url is required for the openai provider"}
		}
	default:
		return &ConfigurationError{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}

	switch c.Session.Store {
	case "memory", "redis":
	default:
		return &ConfigurationError{Field: "session.store", Message: fmt.Sprintf("unknown session store %q", c.Session.Store)}
	}
	return nil
}

// UserMessage 返回应当展示给用户的配置错误文本。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Message
	}
	return err.Error()
}
