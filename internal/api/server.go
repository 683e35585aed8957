package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"SeiChat-Agent/internal/bot"
	"SeiChat-Agent/internal/events"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/observability/metrics"
	"SeiChat-Agent/internal/web3"
	"SeiChat-Agent/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// MessageHandler 处理一条消息，通常由 bot.Pipeline 实现。
type MessageHandler interface {
	Handle(ctx context.Context, msg intent.Message) bot.Response
}

// ChainProbe 用于健康检查时读取链状态。
type ChainProbe interface {
	FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error)
}

// Server 负责暴露 REST 接口。
type Server struct {
	addr     string
	handler  MessageHandler
	history  events.History
	chain    ChainProbe
	chainTag string
	auth     func(http.Handler) http.Handler
	validate *validator.Validate
	log      *slog.Logger
}

// Option 定义可选的 Server 配置。
type Option func(*Server)

// WithHistory 启用 /api/v1/history。
func WithHistory(h events.History) Option {
	return func(s *Server) { s.history = h }
}

// WithChainProbe 让 /healthz 附带链状态。
func WithChainProbe(name string, probe ChainProbe) Option {
	return func(s *Server) {
		s.chain = probe
		s.chainTag = name
	}
}

// WithAuth 为 /api/v1 下的接口挂载认证中间件。
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.auth = mw }
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, handler MessageHandler, opts ...Option) *Server {
	s := &Server{addr: addr, handler: handler, validate: validator.New(), log: logger.Named("api")}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回带指标统计的路由。
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth)
		}
		r.Post("/messages", s.handleMessages)
		r.Get("/history", s.handleHistory)
	})
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("运维 HTTP 服务已启动", slog.String("addr", s.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// MessageRequest 是 POST /api/v1/messages 的请求体。
type MessageRequest struct {
	Text     string `json:"text" validate:"max=4000"`
	SenderID string `json:"sender_id" validate:"required,max=64"`
	ChatID   string `json:"chat_id,omitempty" validate:"max=64"`
}

// MessageResponse 是对应的响应体。
type MessageResponse struct {
	Reply   string `json:"reply"`
	Stage   string `json:"stage,omitempty"`
	Command string `json:"command,omitempty"`
	Failed  bool   `json:"failed"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.handler == nil {
		writeError(w, http.StatusServiceUnavailable, "消息处理器未初始化")
		return
	}

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	req.SenderID = strings.TrimSpace(req.SenderID)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp := s.handler.Handle(r.Context(), intent.Message{
		Text:     req.Text,
		SenderID: req.SenderID,
		ChatID:   req.ChatID,
	})
	writeJSON(w, http.StatusOK, MessageResponse{
		Reply:   resp.Text,
		Stage:   resp.Stage,
		Command: string(resp.Command),
		Failed:  resp.Failed,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "未启用命令历史")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	list, err := s.history.Recent(r.Context(), r.URL.Query().Get("user_id"), limit)
	if err != nil {
		s.log.Error("查询命令历史失败", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "查询命令历史失败")
		return
	}
	if list == nil {
		list = []events.CommandOutcome{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HealthResponse 是 /healthz 的响应体。
type HealthResponse struct {
	Status      string `json:"status"`
	Chain       string `json:"chain,omitempty"`
	ChainID     string `json:"chain_id,omitempty"`
	BlockNumber string `json:"block_number,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.chain != nil {
		resp.Chain = s.chainTag
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		snap, err := s.chain.FetchChainSnapshot(ctx)
		if err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
		} else {
			resp.ChainID = snap.ChainID
			resp.BlockNumber = snap.BlockNumber
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder 记录响应状态码。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument 按路由模板统计请求数与耗时。
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveHTTPRequest(route, r.Method, rec.status, time.Since(start))
	})
}

// validationMessage 将校验错误转换为不暴露结构体名的提示。
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "请求参数无效"
	}
	e := verrs[0]
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return field + " 不能为空"
	case "max":
		return field + " 超出长度限制 " + e.Param()
	default:
		return field + " 无效"
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
