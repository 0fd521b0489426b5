package clients

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"GoEstateAI/app/chat"
	"GoEstateAI/app/logger"
)

const discordMessageLimit = 2000

var _ Interface = &DiscordClient{}

// DiscordClient answers channel messages. Each channel is one conversation
// thread, so a channel keeps its history across messages.
type DiscordClient struct {
	Client
	session   *discordgo.Session
	channelID string
	prefix    string
	timeout   time.Duration
	log       *logger.Logger
}

// NewDiscordClientFromConfig reads token, channel_id and prefix. The token
// and channel fall back to DISCORD_TOKEN and DISCORD_CHANNEL_ID.
func NewDiscordClientFromConfig(cfg map[string]string, opts Options) (*DiscordClient, error) {
	token := cfg["token"]
	if token == "" {
		token = os.Getenv("DISCORD_TOKEN")
	}
	if token == "" {
		return nil, errors.New("discord token is not configured")
	}
	channelID := cfg["channel_id"]
	if channelID == "" {
		channelID = os.Getenv("DISCORD_CHANNEL_ID")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	dc := newDiscordClient(session, channelID, cfg["prefix"], opts)
	session.AddHandler(dc.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return dc, nil
}

func newDiscordClient(session *discordgo.Session, channelID, prefix string, opts Options) *DiscordClient {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DiscordClient{
		session:   session,
		channelID: channelID,
		prefix:    prefix,
		timeout:   timeout,
		log:       log.With("component", "discord"),
	}
}

func (c *DiscordClient) Subscribe(answerer Answerer) error {
	c.answerer = answerer
	return c.Open()
}

func (c *DiscordClient) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.log.Info("Discord client started. Listening for messages...", "channel", c.channelID)
	return nil
}

func (c *DiscordClient) Close() error {
	return c.session.Close()
}

func (c *DiscordClient) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	question, ok := c.accept(m.ChannelID, m.Content)
	if !ok {
		return
	}
	_ = s.ChannelTyping(m.ChannelID)

	for _, part := range splitMessage(c.answer(context.Background(), m.ChannelID, question), discordMessageLimit) {
		if err := c.SendMessage(m.ChannelID, part); err != nil {
			c.log.Error("❌ Error sending reply", "channel", m.ChannelID, "error", err)
			return
		}
	}
}

// accept filters messages by channel and prefix and returns the question text.
func (c *DiscordClient) accept(channelID, content string) (string, bool) {
	if c.channelID != "" && channelID != c.channelID {
		return "", false
	}
	content = strings.TrimSpace(content)
	if c.prefix != "" {
		if !strings.HasPrefix(content, c.prefix) {
			return "", false
		}
		content = strings.TrimSpace(strings.TrimPrefix(content, c.prefix))
	}
	return content, content != ""
}

func (c *DiscordClient) answer(ctx context.Context, channelID, question string) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.answerer.Generate(ctx, threadID(channelID), question)
	if err != nil {
		c.log.Error("❌ Error answering message", "channel", channelID, "error", err)
		return chat.UserFacingError(err)
	}
	return reply
}

func threadID(channelID string) string {
	return "discord:" + channelID
}

func (c *DiscordClient) SendMessage(channelID, content string) error {
	if channelID == "" {
		return fmt.Errorf("channelID is empty")
	}
	if _, err := c.session.ChannelMessageSend(channelID, content); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// splitMessage cuts s into pieces of at most limit runes, preferring line breaks.
func splitMessage(s string, limit int) []string {
	runes := []rune(s)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
