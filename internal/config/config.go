package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 描述了 SeiChat 在启动阶段需要加载的全部配置。
type Config struct {
	Bot      BotConfig      `json:"bot"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	LLM      LLMConfig      `json:"llm"`
	Web3     Web3Config     `json:"web3"`
	Oracle   OracleConfig   `json:"oracle"`
	Delegate DelegateConfig `json:"delegate"`
	Events   EventsConfig   `json:"events"`
	Runtime  RuntimeConfig  `json:"runtime"`
}

// BotConfig 描述聊天平台的接入参数。
type BotConfig struct {
	Token string `json:"token"`
	AppID string `json:"app_id"`
}

// ServerConfig 控制运维 HTTP 服务的监听地址，为空时不启动。
// APITokens 以调用方名称为键，为空时 /api/v1 不做认证。
type ServerConfig struct {
	Address   string            `json:"address"`
	APITokens map[string]string `json:"api_tokens"`
}

// LoggingConfig 对应 pkg/logger 的配置。
type LoggingConfig struct {
	Level     string   `json:"level"`
	Format    string   `json:"format"`
	Outputs   []string `json:"outputs"`
	AuditPath string   `json:"audit_path"`
}

// StorageConfig 描述用户钱包存储的后端。
type StorageConfig struct {
	UserStore UserStoreConfig `json:"user_store"`
}

// UserStoreConfig 支持 file、mysql、redis 三种驱动。
type UserStoreConfig struct {
	Driver        string `json:"driver"`
	Path          string `json:"path"`
	DSN           string `json:"dsn"`
	RedisAddress  string `json:"redis_address"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	RedisPrefix   string `json:"redis_prefix"`
}

// LLMConfig 用于配置对话兜底所使用的大模型。
type LLMConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述 OpenAI Chat Completions 的调用参数。
type OpenAIConfig struct {
	APIKey         string  `json:"api_key"`
	APIKeyEnv      string  `json:"api_key_env"`
	BaseURL        string  `json:"base_url"`
	Model          string  `json:"model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// Timeout 返回 OpenAI 请求的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveAPIKey 优先使用显式配置，其次读取 APIKeyEnv 指向的环境变量。
func (c OpenAIConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key
	}
	if c.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	}
	return ""
}

// Web3Config 包含访问 Sei EVM 节点与签名所需的信息。
type Web3Config struct {
	RPCURL         string `json:"rpc_url"`
	ChainConfig    string `json:"chain_config"`
	DefaultChain   string `json:"default_chain"`
	PrivateKey     string `json:"private_key"`
	DefaultAddress string `json:"default_address"`
	DexRouter      string `json:"dex_router"`
	WrappedNative  string `json:"wrapped_native"`
}

// OracleConfig 描述价格与预测数据源。
type OracleConfig struct {
	BaseURL         string `json:"base_url"`
	CacheSize       int    `json:"cache_size"`
	CacheTTLSeconds int    `json:"cache_ttl_seconds"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// CacheTTL 返回价格缓存的有效期。
func (c OracleConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// DelegateConfig 控制外部解释插件（Eliza 兼容层）。
type DelegateConfig struct {
	Enabled      bool   `json:"enabled"`
	PluginPath   string `json:"plugin_path"`
	PolicyConfig string `json:"policy_config"`
}

// EventsConfig 描述命令执行事件的投递方式。
type EventsConfig struct {
	Driver      string `json:"driver"`
	RabbitMQURL string `json:"rabbitmq_url"`
	Exchange    string `json:"exchange"`
	RoutingKey  string `json:"routing_key"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Load 解析 JSON 配置文件，随后叠加 .env 与环境变量。
// path 为空或文件不存在时仅使用环境变量。
func Load(path string) (*Config, error) {
	// .env 缺失不是错误。
	_ = godotenv.Load()

	var cfg Config
	baseDir := "."
	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(content, &cfg); err != nil {
				return nil, fmt.Errorf("解析配置失败: %w", err)
			}
			baseDir = filepath.Dir(path)
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults(baseDir)
	return &cfg, nil
}

// applyEnv 用环境变量覆盖配置文件中的值，变量名与原有部署保持一致。
func (c *Config) applyEnv() {
	setString(&c.Bot.Token, "BOT_TOKEN")
	setString(&c.Bot.AppID, "BOT_APP_ID")
	setString(&c.Server.Address, "SEICHAT_HTTP_ADDR")
	if token := strings.TrimSpace(os.Getenv("SEICHAT_API_TOKEN")); token != "" {
		if c.Server.APITokens == nil {
			c.Server.APITokens = map[string]string{}
		}
		c.Server.APITokens["env"] = token
	}
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAI.Model, "OPENAI_MODEL")
	setString(&c.Web3.RPCURL, "SEI_RPC_URL")
	setString(&c.Web3.PrivateKey, "SEI_PRIVATE_KEY")
	setString(&c.Web3.DefaultAddress, "SEI_ADDRESS")
	setString(&c.Web3.DexRouter, "DEX_ROUTER")
	setString(&c.Web3.WrappedNative, "WSEI")
	setString(&c.Storage.UserStore.Driver, "USER_STORE_DRIVER")
	setString(&c.Storage.UserStore.DSN, "USER_STORE_DSN")
	setString(&c.Storage.UserStore.RedisAddress, "REDIS_ADDR")
	setString(&c.Events.RabbitMQURL, "RABBITMQ_URL")
	setString(&c.Delegate.PluginPath, "ELIZA_PLUGIN_PATH")
	if raw, ok := os.LookupEnv("ELIZA_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			c.Delegate.Enabled = enabled
		}
	}
}

func setString(target *string, env string) {
	if value, ok := os.LookupEnv(env); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	store := &c.Storage.UserStore
	if store.Driver == "" {
		store.Driver = "file"
	}
	if store.Path == "" {
		store.Path = filepath.Join(c.Runtime.DataDir, "users.json")
	}
	if store.RedisPrefix == "" {
		store.RedisPrefix = "seichat:user:"
	}

	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-3.5-turbo"
	}
	if c.LLM.OpenAI.MaxTokens <= 0 {
		c.LLM.OpenAI.MaxTokens = 150
	}
	if c.LLM.OpenAI.Temperature == 0 {
		c.LLM.OpenAI.Temperature = 0.6
	}

	if c.Oracle.BaseURL == "" {
		c.Oracle.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.Oracle.CacheSize <= 0 {
		c.Oracle.CacheSize = 256
	}
	if c.Oracle.CacheTTLSeconds <= 0 {
		c.Oracle.CacheTTLSeconds = 30
	}

	if c.Events.Driver == "" {
		if c.Events.RabbitMQURL != "" {
			c.Events.Driver = "rabbitmq"
		} else {
			c.Events.Driver = "log"
		}
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "seichat.events"
	}
	if c.Events.RoutingKey == "" {
		c.Events.RoutingKey = "command.outcome"
	}

	if c.Web3.ChainConfig != "" && !filepath.IsAbs(c.Web3.ChainConfig) {
		c.Web3.ChainConfig = filepath.Join(baseDir, c.Web3.ChainConfig)
	}
	if c.Delegate.PolicyConfig != "" && !filepath.IsAbs(c.Delegate.PolicyConfig) {
		c.Delegate.PolicyConfig = filepath.Join(baseDir, c.Delegate.PolicyConfig)
	}
}
