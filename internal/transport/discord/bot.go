// Package discord 通过 discordgo 接入 Discord，将频道消息交给处理流水线。
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"SeiChat-Agent/internal/bot"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/pkg/logger"

	"github.com/bwmarrin/discordgo"
)

// MaxMessageLength 是 Discord 单条消息的字符上限。
const MaxMessageLength = 2000

// Config 描述 Discord 机器人的接入参数。
type Config struct {
	Token string
	AppID string
}

// Handler 处理一条入站消息。
type Handler interface {
	Handle(ctx context.Context, msg intent.Message) bot.Response
}

// messenger 是 Bot 使用的 discordgo.Session 子集。
type messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Bot 封装 discordgo 会话。
type Bot struct {
	session *discordgo.Session
	api     messenger
	appID   string
	log     *slog.Logger
}

// New 创建会话但不建立连接。
func New(cfg Config) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("未配置 BOT_TOKEN")
	}
	s, err := discordgo.New("Bot " + strings.TrimSpace(cfg.Token))
	if err != nil {
		return nil, fmt.Errorf("创建 Discord 会话失败: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return &Bot{session: s, api: s, appID: cfg.AppID, log: logger.Named("discord")}, nil
}

// DeleteMessage 删除一条消息，供 clear 命令使用。
func (b *Bot) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	if chatID == "" || messageID == "" {
		return errors.New("缺少频道或消息 ID")
	}
	return b.api.ChannelMessageDelete(chatID, messageID, discordgo.WithContext(ctx))
}

// Run 打开连接并处理消息，直到 ctx 取消。
func (b *Bot) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("消息处理器不能为空")
	}
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("Discord 机器人已就绪", slog.String("user", r.User.Username))
	})
	b.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		selfID := ""
		if s.State != nil && s.State.User != nil {
			selfID = s.State.User.ID
		}
		b.handleMessage(ctx, handler, selfID, m.Message)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("连接 Discord 失败: %w", err)
	}
	defer b.session.Close()

	<-ctx.Done()
	return ctx.Err()
}

// handleMessage 在 discordgo 的事件 goroutine 中运行，每条消息独立处理。
func (b *Bot) handleMessage(ctx context.Context, handler Handler, selfID string, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.Author.ID == selfID {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("处理 Discord 消息异常", slog.Any("panic", r))
			b.send(ctx, m.ChannelID, intent.ErrorMarker+fmt.Sprint(r))
		}
	}()

	resp := handler.Handle(ctx, intent.Message{
		Text:      m.Content,
		SenderID:  m.Author.ID,
		ChatID:    m.ChannelID,
		MessageID: m.ID,
	})
	if resp.Empty() {
		return
	}
	b.send(ctx, m.ChannelID, resp.Text)
}

func (b *Bot) send(ctx context.Context, channelID, text string) {
	if _, err := b.api.ChannelMessageSend(channelID, truncate(text), discordgo.WithContext(ctx)); err != nil {
		b.log.Warn("发送 Discord 消息失败", slog.String("channel", channelID), slog.Any("error", err))
	}
}

func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxMessageLength {
		return text
	}
	return string(runes[:MaxMessageLength-1]) + "…"
}
