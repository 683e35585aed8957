package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"SeiChat-Agent/internal/agent"
	"SeiChat-Agent/internal/api"
	"SeiChat-Agent/internal/auth"
	"SeiChat-Agent/internal/bot"
	"SeiChat-Agent/internal/config"
	"SeiChat-Agent/internal/delegate"
	"SeiChat-Agent/internal/dispatch"
	"SeiChat-Agent/internal/events"
	"SeiChat-Agent/internal/llm/openai"
	"SeiChat-Agent/internal/oracle"
	"SeiChat-Agent/internal/storage/mysql"
	"SeiChat-Agent/internal/storage/redis"
	"SeiChat-Agent/internal/transport/discord"
	"SeiChat-Agent/internal/users"
	"SeiChat-Agent/internal/web3"
	"SeiChat-Agent/internal/web3/provider"
	"SeiChat-Agent/pkg/logger"
	"SeiChat-Agent/pkg/plugin"

	"golang.org/x/sync/errgroup"
)

// main 是 SeiChat 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("seichatd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("SEICHAT_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "seichat.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.Outputs,
		Service:     "seichatd",
		Audit: logger.AuditConfig{
			Enabled: cfg.Logging.AuditPath != "",
			Path:    cfg.Logging.AuditPath,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()
	lg := logger.Named("main")

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	chain, chainName, closeChain, err := createChainClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeChain()

	store, outcomes, err := createUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, history, err := createPublisher(cfg, outcomes)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var discordBot *discord.Bot
	if cfg.Bot.Token != "" {
		discordBot, err = discord.New(discord.Config{Token: cfg.Bot.Token, AppID: cfg.Bot.AppID})
		if err != nil {
			return err
		}
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithOracle(oracle.NewCoinGecko(oracle.Config{
			BaseURL:   cfg.Oracle.BaseURL,
			CacheSize: cfg.Oracle.CacheSize,
			CacheTTL:  cfg.Oracle.CacheTTL(),
			Timeout:   time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		})),
		dispatch.WithUserStore(store),
		dispatch.WithDefaultAddress(cfg.Web3.DefaultAddress),
	}
	if chain != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithChain(chain))
	}
	if discordBot != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithDeleter(discordBot))
	}
	dispatcher := dispatch.New(dispatchOpts...)

	agentOpts := []agent.Option{}
	if completer, err := createCompleter(cfg); err != nil {
		lg.Warn("对话补全不可用，使用固定回复", slog.Any("error", err))
	} else {
		agentOpts = append(agentOpts, agent.WithCompleter(completer))
	}
	if cfg.Delegate.Enabled {
		shim, err := createShim(cfg, chain)
		if err != nil {
			return err
		}
		agentOpts = append(agentOpts, agent.WithDelegate(shim))
	}

	pipeline := bot.NewPipeline(agent.New(agentOpts...), dispatcher, bot.WithPublisher(publisher))

	g, gctx := errgroup.WithContext(ctx)
	if discordBot != nil {
		g.Go(func() error { return discordBot.Run(gctx, pipeline) })
	} else {
		lg.Warn("未配置 BOT_TOKEN，聊天接入未启动")
	}
	if cfg.Server.Address != "" {
		authSvc := auth.NewService(cfg.Server.APITokens)
		if !authSvc.Enabled() {
			lg.Warn("未配置 API 令牌，/api/v1 不做认证")
		}
		serverOpts := []api.Option{api.WithHistory(history), api.WithAuth(authSvc.Middleware)}
		if chain != nil {
			serverOpts = append(serverOpts, api.WithChainProbe(chainName, chain))
		}
		server := api.NewServer(cfg.Server.Address, pipeline, serverOpts...)
		g.Go(func() error { return server.Start(gctx) })
	}

	lg.Info("seichatd 已启动",
		slog.String("chain", chainName),
		slog.String("user_store", cfg.Storage.UserStore.Driver),
		slog.String("events", cfg.Events.Driver))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	<-ctx.Done()
	return nil
}

// createChainClient 在配置了 RPC 时返回默认链客户端，否则返回 nil。
func createChainClient(ctx context.Context, cfg *config.Config) (web3.Client, string, func(), error) {
	if strings.TrimSpace(cfg.Web3.RPCURL) == "" && strings.TrimSpace(cfg.Web3.ChainConfig) == "" {
		logger.Named("main").Warn("未配置 Sei EVM 节点，链上命令将返回错误")
		return nil, "", func() {}, nil
	}
	registry, err := provider.NewRegistry(ctx, cfg.Web3)
	if err != nil {
		return nil, "", nil, err
	}
	client, err := registry.DefaultClient()
	if err != nil {
		registry.Close()
		return nil, "", nil, err
	}
	return client, registry.DefaultChain(), registry.Close, nil
}

// createUserStore 根据驱动创建用户存储。mysql 驱动同时返回命令记录仓储。
func createUserStore(ctx context.Context, cfg *config.Config) (users.Store, *mysql.SQLOutcomeRepository, error) {
	sc := cfg.Storage.UserStore
	switch strings.ToLower(sc.Driver) {
	case "", "file":
		store, err := users.NewFileStore(sc.Path)
		return store, nil, err
	case "memory":
		return users.NewMemoryStore(), nil, nil
	case "mysql":
		repo, err := mysql.NewSQLUserRepository(ctx, mysql.Config{DSN: sc.DSN})
		if err != nil {
			return nil, nil, err
		}
		return repo, mysql.NewSQLOutcomeRepository(repo.DB()), nil
	case "redis":
		store, err := redis.NewUserStore(ctx, redis.Config{
			Address:  sc.RedisAddress,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Prefix:   sc.RedisPrefix,
		})
		return store, nil, err
	default:
		return nil, nil, fmt.Errorf("未知的用户存储驱动: %s", sc.Driver)
	}
}

// createPublisher 组合事件 Sink：日志与内存始终启用，其余按配置追加。
func createPublisher(cfg *config.Config, outcomes *mysql.SQLOutcomeRepository) (*events.Fanout, events.History, error) {
	memory := events.NewMemorySink(0)
	sinks := []events.Sink{events.NewLogSink(nil), memory}
	var history events.History = memory

	if outcomes != nil {
		sink := events.NewMySQLSink(outcomes)
		sinks = append(sinks, sink)
		history = sink
	}

	switch strings.ToLower(cfg.Events.Driver) {
	case "", "log", "memory", "mysql":
	case "rabbitmq":
		sink, err := events.NewRabbitMQSink(events.RabbitMQConfig{
			URL:        cfg.Events.RabbitMQURL,
			Exchange:   cfg.Events.Exchange,
			RoutingKey: cfg.Events.RoutingKey,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
	default:
		return nil, nil, fmt.Errorf("未知的事件驱动: %s", cfg.Events.Driver)
	}
	return events.NewFanout(sinks...), history, nil
}

func createCompleter(cfg *config.Config) (*openai.Client, error) {
	oc := cfg.LLM.OpenAI
	return openai.NewClient(openai.Config{
		APIKey:      oc.ResolveAPIKey(),
		BaseURL:     oc.BaseURL,
		Model:       oc.Model,
		MaxTokens:   oc.MaxTokens,
		Temperature: oc.Temperature,
		Timeout:     oc.Timeout(),
	})
}

func createShim(cfg *config.Config, chain web3.Client) (*delegate.Shim, error) {
	policy, err := plugin.LoadPolicy(cfg.Delegate.PolicyConfig)
	if err != nil {
		return nil, err
	}
	var local delegate.LocalWallet
	if chain != nil {
		local = chain
	}
	return delegate.New(cfg.Delegate.PluginPath, local, delegate.WithPolicy(policy)), nil
}
