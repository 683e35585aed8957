// Package auth 为运维 HTTP 接口提供基于静态令牌的认证。
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"SeiChat-Agent/pkg/logger"
)

var (
	// ErrMissingToken 表示请求未携带 Bearer 令牌。
	ErrMissingToken = errors.New("缺少访问令牌")
	// ErrInvalidToken 表示令牌无法匹配任何已配置的调用方。
	ErrInvalidToken = errors.New("访问令牌无效")
)

type credential struct {
	name   string
	digest [sha256.Size]byte
}

// Service 负责校验请求携带的 API 令牌。
type Service struct {
	creds []credential
	audit *slog.Logger
}

// Option 自定义 Service。
type Option func(*Service)

// WithAuditLogger 替换默认的审计日志记录器。
func WithAuditLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.audit = l
		}
	}
}

// NewService 以 name -> token 的映射构造认证服务。空映射表示关闭认证。
func NewService(tokens map[string]string, opts ...Option) *Service {
	svc := &Service{audit: logger.Audit()}
	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		token := strings.TrimSpace(tokens[name])
		if token == "" {
			continue
		}
		svc.creds = append(svc.creds, credential{name: name, digest: sha256.Sum256([]byte(token))})
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Enabled 报告是否配置了至少一个令牌。
func (s *Service) Enabled() bool {
	return s != nil && len(s.creds) > 0
}

// Authenticate 解析 Authorization 头并返回匹配的调用方。
func (s *Service) Authenticate(header string) (*Subject, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	digest := sha256.Sum256([]byte(strings.TrimSpace(token)))
	var match *Subject
	for _, c := range s.creds {
		// 遍历全部条目，保持比较耗时与命中位置无关。
		if subtle.ConstantTimeCompare(digest[:], c.digest[:]) == 1 && match == nil {
			match = &Subject{Name: c.name}
		}
	}
	if match == nil {
		return nil, ErrInvalidToken
	}
	return match, nil
}
