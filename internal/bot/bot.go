package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/mindmesh-bot/internal/assistant"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram client the handlers talk through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	sender   Sender
	service  *assistant.Service
	bindings storage.ChatBindingStorage
	logger   *zap.Logger
}

func New(token string, service *assistant.Service, bindings storage.ChatBindingStorage, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, service, bindings, logger)
	b.api = api
	return b, nil
}

func newBot(sender Sender, service *assistant.Service, bindings storage.ChatBindingStorage, logger *zap.Logger) *Bot {
	return &Bot{
		sender:   sender,
		service:  service,
		bindings: bindings,
		logger:   logger,
	}
}

// Start polls for updates until ctx is done. Each message is handled on its
// own goroutine; turns of one user are ordered by their session.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("account", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		b.sendMessage(message.Chat.ID, "I can only read text. Send me a question.")
		return
	}

	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	if _, err := b.sender.Request(tgbotapi.NewChatAction(message.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send typing action", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
	}

	reply, err := b.service.SendMessage(ctx, username, content)
	if err != nil {
		b.logger.Error("Failed to answer message",
			zap.Error(err),
			zap.String("username", username),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}

	b.sendReply(message.Chat.ID, message.MessageID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "register":
		b.handleRegister(ctx, message)
	case "login":
		b.handleLogin(ctx, message)
	case "logout":
		b.handleLogout(ctx, message)
	case "whoami":
		b.handleWhoami(ctx, message)
	case "knowledge":
		b.handleKnowledge(ctx, message)
	case "learning":
		b.handleLearning(ctx, message)
	case "profile":
		b.handleProfile(ctx, message)
	case "reset":
		b.handleReset(ctx, message)
	case "newsession":
		b.handleNewSession(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to MindMesh! 🎓
I am a learning assistant that adapts its explanations to you.

1. Pick a name with /register NAME (or /login NAME if you already have one)
2. Tell me about yourself with /knowledge and /learning
3. Ask me anything

Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/register NAME - Create a user and use it in this chat
/login NAME - Use an existing user in this chat
/logout - Stop using the current user in this chat
/whoami - Show the current user
/knowledge - Fill in the knowledge questionnaire
/learning - Fill in the learning preferences questionnaire
/profile - Show your saved answers
/reset - Start the conversation over with your latest answers
/newsession - Close the conversation and open a fresh one

Any other message is a question for the assistant.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleRegister(ctx context.Context, message *tgbotapi.Message) {
	username := strings.TrimSpace(message.CommandArguments())
	if username == "" {
		b.sendMessage(message.Chat.ID, "Usage: /register NAME")
		return
	}

	if _, err := b.service.CreateUser(ctx, username); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			b.sendErrorMessage(message.Chat.ID, fmt.Sprintf("The name %s is taken. Use /login %s if it is yours.", username, username))
			return
		}
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}

	if !b.bind(ctx, message.Chat.ID, username) {
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Registered as %s. Now tell me about yourself with /knowledge and /learning.", username))
}

func (b *Bot) handleLogin(ctx context.Context, message *tgbotapi.Message) {
	username := strings.TrimSpace(message.CommandArguments())
	if username == "" {
		b.sendMessage(message.Chat.ID, "Usage: /login NAME")
		return
	}

	if _, err := b.service.User(ctx, username); err != nil {
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}

	if !b.bind(ctx, message.Chat.ID, username) {
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Logged in as %s.", username))
}

func (b *Bot) handleLogout(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}
	b.service.EndSession(username)

	if err := b.bindings.DeleteChatBinding(ctx, message.Chat.ID); err != nil {
		b.logger.Error("Failed to delete chat binding", zap.Error(err), zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}
	b.sendMessage(message.Chat.ID, "Logged out.")
}

func (b *Bot) handleWhoami(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}
	b.sendMessage(message.Chat.ID, "You are "+username+".")
}

func (b *Bot) handleKnowledge(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	form := strings.TrimSpace(message.CommandArguments())
	if form == "" {
		b.sendMessage(message.Chat.ID, "Send /knowledge followed by your answers, one per line. Scales go from 0 to 10. Example:\n\n/knowledge\n"+profile.KnowledgeFormTemplate)
		return
	}

	kp, err := profile.ParseKnowledgeForm(form)
	if err == nil {
		err = b.service.SubmitKnowledgeProfile(ctx, username, kp)
	}
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}
	b.sendMessage(message.Chat.ID, "Knowledge profile saved. Use /reset to apply it to the current conversation.")
}

func (b *Bot) handleLearning(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	form := strings.TrimSpace(message.CommandArguments())
	if form == "" {
		b.sendMessage(message.Chat.ID, "Send /learning followed by your answers, one per line. Scales go from 0 to 10. Example:\n\n/learning\n"+profile.LearnerFormTemplate)
		return
	}

	lp, err := profile.ParseLearnerForm(form)
	if err == nil {
		err = b.service.SubmitLearnerProfile(ctx, username, lp)
	}
	if err != nil {
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}
	b.sendMessage(message.Chat.ID, "Learning profile saved. Use /reset to apply it to the current conversation.")
}

func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	p, err := b.service.Profile(ctx, username)
	if err != nil {
		b.logger.Error("Failed to load profile", zap.Error(err), zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}

	response := "*Knowledge profile:*\n" + escapeMarkdown(p.KnowledgeDescription) +
		"\n\n*Learning profile:*\n" + escapeMarkdown(p.LearnerDescription)

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send profile message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleReset(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	if err := b.service.Reset(ctx, username); err != nil {
		b.logger.Error("Failed to reset session", zap.Error(err), zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}
	b.sendMessage(message.Chat.ID, "Conversation cleared. I will use your latest answers from now on.")
}

func (b *Bot) handleNewSession(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.currentUser(ctx, message.Chat.ID)
	if !ok {
		return
	}

	b.service.EndSession(username)
	if _, err := b.service.Open(ctx, username); err != nil {
		b.logger.Error("Failed to open session", zap.Error(err), zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, assistant.UserMessage(err))
		return
	}
	b.sendMessage(message.Chat.ID, "New conversation started.")
}

// currentUser resolves the username bound to chatID. It tells the chat what
// to do when there is none.
func (b *Bot) currentUser(ctx context.Context, chatID int64) (string, bool) {
	binding, err := b.bindings.GetChatBinding(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(chatID, "Who are you? Use /register NAME or /login NAME first.")
		return "", false
	}
	if err != nil {
		b.logger.Error("Failed to get chat binding", zap.Error(err), zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, assistant.UserMessage(err))
		return "", false
	}
	return binding.Username, true
}

func (b *Bot) bind(ctx context.Context, chatID int64, username string) bool {
	if err := b.bindings.BindChat(ctx, chatID, username); err != nil {
		b.logger.Error("Failed to bind chat",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("username", username))
		b.sendErrorMessage(chatID, assistant.UserMessage(err))
		return false
	}
	return true
}

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendReply(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyToID
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
