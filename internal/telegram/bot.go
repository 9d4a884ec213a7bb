// Package telegram receives tipster messages through the Telegram Bot API
// and exposes the chat metadata and photos the pipeline needs.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxPhotoBytes bounds a single photo download. The Bot API itself refuses
// files larger than 20MB.
const maxPhotoBytes = 20 << 20

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Message is one inbound post from a monitored chat.
type Message struct {
	Time        time.Time
	ChatTitle   string
	Text        string
	PhotoFileID string
	ChatID      int64
	MessageID   int
}

// HasPhoto reports whether the message carried an image.
func (m Message) HasPhoto() bool {
	return m.PhotoFileID != ""
}

// CommandFunc runs an operator command and returns the reply text.
type CommandFunc func(ctx context.Context) (string, error)

// Options configures a Bot.
type Options struct {
	Logger *slog.Logger
	// Commands maps a command name without the slash to its handler. Only
	// admins may run commands.
	Commands    map[string]CommandFunc
	HTTPClient  *http.Client
	Chats       []int64
	Admins      []int64
	PollTimeout int
	// Discover logs the id and title of every chat that sends a message,
	// monitored or not.
	Discover bool
}

// Bot long-polls the Bot API and routes messages from monitored chats.
type Bot struct {
	api       API
	http      *http.Client
	logger    *slog.Logger
	commands  map[string]CommandFunc
	monitored map[int64]struct{}
	admins    map[int64]struct{}
	names     map[int64]string
	opts      Options
	mu        sync.RWMutex
	running   sync.WaitGroup
}

// New connects to the Bot API with token.
func New(token string, opts Options) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	b := NewWithAPI(api, opts)
	b.logger.Info("Connected to Telegram", "username", api.Self.UserName, "id", api.Self.ID)
	return b, nil
}

// NewWithAPI builds a Bot over an existing API client.
func NewWithAPI(api API, opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60
	}

	b := &Bot{
		api:       api,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		commands:  opts.Commands,
		monitored: toSet(opts.Chats),
		admins:    toSet(opts.Admins),
		names:     make(map[int64]string),
		opts:      opts,
	}
	return b
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Monitors reports whether messages from chatID are processed. With no
// configured chats every chat is monitored.
func (b *Bot) Monitors(chatID int64) bool {
	if len(b.monitored) == 0 {
		return true
	}
	_, ok := b.monitored[chatID]
	return ok
}

// IsAdmin reports whether userID may run operator commands.
func (b *Bot) IsAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// Run polls for updates until ctx is cancelled, calling handle for every
// message from a monitored chat. handle is called synchronously; callers
// that need concurrency dispatch from inside it. Operator commands run on
// their own goroutines and Run waits for them before returning.
func (b *Bot) Run(ctx context.Context, handle func(context.Context, Message)) error {
	defer b.running.Wait()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Listening for messages", "chats", len(b.monitored), "discover", b.opts.Discover)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("telegram update channel closed")
			}
			b.route(ctx, update, handle)
		}
	}
}

func (b *Bot) route(ctx context.Context, update tgbotapi.Update, handle func(context.Context, Message)) {
	msg := update.Message
	if msg == nil {
		msg = update.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	b.rememberName(msg.Chat)
	if b.opts.Discover {
		b.logger.Info("Chat seen", "chat_id", msg.Chat.ID, "title", chatTitle(msg.Chat), "type", msg.Chat.Type)
	}

	if msg.IsCommand() {
		b.running.Add(1)
		go func() {
			defer b.running.Done()
			b.runCommand(ctx, msg)
		}()
		return
	}

	if !b.Monitors(msg.Chat.ID) {
		return
	}
	handle(ctx, toMessage(msg))
}

func toMessage(msg *tgbotapi.Message) Message {
	out := Message{
		ChatID:    msg.Chat.ID,
		ChatTitle: chatTitle(msg.Chat),
		MessageID: msg.MessageID,
		Time:      msg.Time(),
		Text:      msg.Text,
	}
	if out.Text == "" {
		out.Text = msg.Caption
	}
	if len(msg.Photo) > 0 {
		out.PhotoFileID = largestPhoto(msg.Photo).FileID
	} else if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		out.PhotoFileID = msg.Document.FileID
	}
	return out
}

func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

func chatTitle(chat *tgbotapi.Chat) string {
	switch {
	case chat.Title != "":
		return chat.Title
	case chat.UserName != "":
		return "@" + chat.UserName
	case chat.FirstName != "" || chat.LastName != "":
		return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	default:
		return ""
	}
}

func (b *Bot) rememberName(chat *tgbotapi.Chat) {
	title := chatTitle(chat)
	if title == "" {
		return
	}
	b.mu.Lock()
	b.names[chat.ID] = title
	b.mu.Unlock()
}

// ChatName returns the display name of a chat, asking the Bot API once and
// caching the answer. The chat id is returned when the name is unknown.
func (b *Bot) ChatName(_ context.Context, chatID int64) string {
	b.mu.RLock()
	name, ok := b.names[chatID]
	b.mu.RUnlock()
	if ok {
		return name
	}

	chat, err := b.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: tgbotapi.ChatConfig{ChatID: chatID}})
	if err != nil {
		b.logger.Warn("Failed to resolve chat name", "chat_id", chatID, "error", err)
		return strconv.FormatInt(chatID, 10)
	}
	b.rememberName(&chat)
	if title := chatTitle(&chat); title != "" {
		return title
	}
	return strconv.FormatInt(chatID, 10)
}

// Download fetches the file behind fileID.
func (b *Bot) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			b.logger.Debug("Failed to close download body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file %s: status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxPhotoBytes)
	}
	return data, nil
}

func (b *Bot) runCommand(ctx context.Context, msg *tgbotapi.Message) {
	name := msg.Command()
	cmd, ok := b.commands[name]
	if !ok {
		return
	}
	if msg.From == nil || !b.IsAdmin(msg.From.ID) {
		b.logger.Warn("Ignoring command from non-admin", "command", name, "chat_id", msg.Chat.ID)
		return
	}

	b.logger.Info("Running operator command", "command", name, "user_id", msg.From.ID)
	reply, err := cmd(ctx)
	if err != nil {
		b.logger.Error("Operator command failed", "command", name, "error", err)
		reply = fmt.Sprintf("/%s failed: %v", name, err)
	}
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, reply)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		b.logger.Warn("Failed to send command reply", "command", name, "error", err)
	}
}
