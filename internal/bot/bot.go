package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/geolearn/internal/catalog"
	"github.com/example/geolearn/internal/learning"
	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// ErrNotConnected is returned when a message is sent before Start connected to Telegram
var ErrNotConnected = errors.New("bot is not connected to Telegram")

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of the Telegram API the bot talks to
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ContentSource returns the markdown of a resource
type ContentSource interface {
	Fetch(ctx context.Context, r models.Resource) (string, error)
}

// Deps are the services the bot works with
type Deps struct {
	Registry *learning.Registry
	Sessions *session.Provider
	Catalog  *catalog.Catalog
	Content  ContentSource
	Tracker  *learning.ReadingTracker
}

// Bot represents the Telegram bot application. Every chat is one learner device.
type Bot struct {
	api      sender
	token    string
	registry *learning.Registry
	sessions *session.Provider
	catalog  *catalog.Catalog
	content  ContentSource
	tracker  *learning.ReadingTracker
	config   *BotConfig
	now      func() time.Time

	mu      sync.Mutex
	readers map[int64]*reader

	handlers sync.WaitGroup
}

// New creates a new bot instance
func New(token string, deps Deps, config *BotConfig) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	b := &Bot{
		token:    token,
		registry: deps.Registry,
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		content:  deps.Content,
		tracker:  deps.Tracker,
		config:   config,
		now:      time.Now,
		readers:  make(map[int64]*reader),
	}
	b.registry.OnMigrationStatus = b.logMigration
	return b
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %v", err)
	}
	b.mu.Lock()
	b.api = botAPI
	b.mu.Unlock()
	log.Printf("Authorized on account %s", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handlers.Add(1)
			go func() {
				defer b.handlers.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// Stop waits for running handlers and pending writes, or until ctx expires
func (b *Bot) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.handlers.Wait()
		b.registry.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Bot stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendReminder implements the scheduler.Notifier interface
func (b *Bot) SendReminder(device string, itemIDs []string) error {
	chatID, err := strconv.ParseInt(device, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid device %q: %v", device, err)
	}

	api := b.client()
	if api == nil {
		return ErrNotConnected
	}

	ctx := context.Background()
	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 You have %d bookmarked %s waiting for you:\n", len(itemIDs), plural(len(itemIDs), "resource", "resources"))
	for i, id := range itemIDs {
		if i == b.config.ReminderLimit {
			fmt.Fprintf(&sb, "...and %d more. See /bookmarks\n", len(itemIDs)-i)
			break
		}
		fmt.Fprintf(&sb, "• %s /read_%s\n", b.resourceTitle(ctx, id), id)
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	if _, err := api.Send(msg); err != nil {
		return err
	}
	log.Printf("Successfully sent reminder to chat %d for %d resources", chatID, len(itemIDs))
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	if err := b.dispatch(ctx, update); err != nil {
		log.Printf("Error handling update %d: %v", update.UpdateID, err)
	}
}

// dispatch routes an update to its handler with the chat's learner state in ctx
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		ctx, err := b.bind(ctx, update.Message.Chat.ID)
		if err != nil {
			return err
		}
		if update.Message.IsCommand() {
			return b.HandleCommand(ctx, update.Message)
		}
		return b.reply(update.Message.Chat.ID, "I don't understand. Use /menu to show the main menu.", b.MainMenuButtons())
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		ctx, err := b.bind(ctx, update.CallbackQuery.Message.Chat.ID)
		if err != nil {
			return err
		}
		return b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
	return nil
}

// bind attaches the learner state of chatID to ctx
func (b *Bot) bind(ctx context.Context, chatID int64) (context.Context, error) {
	c, err := b.registry.Container(ctx, deviceID(chatID))
	if err != nil {
		return ctx, err
	}
	return learning.NewContext(ctx, c), nil
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		log.Printf("Error answering callback: %v", err)
	}

	switch data := callback.Data; {
	case data == "main_menu":
		return b.showMainMenu(chatID)
	case data == "show_resources":
		return b.handleResources(ctx, chatID, "")
	case data == "show_progress":
		return b.handleProgress(ctx, chatID)
	case data == "show_profile":
		return b.handleProfile(ctx, chatID)
	case data == "show_bookmarks":
		return b.handleBookmarks(ctx, chatID)
	case data == "show_achievements":
		return b.handleAchievements(ctx, chatID)
	case data == callbackPrevPage:
		return b.turnPage(ctx, chatID, callback.Message.MessageID, -1)
	case data == callbackNextPage:
		return b.turnPage(ctx, chatID, callback.Message.MessageID, 1)
	case strings.HasPrefix(data, callbackBookmark):
		return b.toggleBookmark(ctx, chatID, strings.TrimPrefix(data, callbackBookmark))
	case strings.HasPrefix(data, callbackDone):
		return b.handleDone(ctx, chatID, strings.TrimPrefix(data, callbackDone))
	}
	return nil
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) error {
	return b.reply(chatID, "Main Menu - choose an option:", b.MainMenuButtons())
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Resources", CallbackData: "show_resources"},
			{Text: "🔖 Bookmarks", CallbackData: "show_bookmarks"},
		},
		{
			{Text: "📊 Progress", CallbackData: "show_progress"},
			{Text: "👤 Profile", CallbackData: "show_profile"},
		},
		{
			{Text: "🏆 Achievements", CallbackData: "show_achievements"},
		},
	}
}

func (b *Bot) client() sender {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.api
}

func (b *Bot) reply(chatID int64, text string, buttons [][]MenuButton) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if buttons != nil {
		msg.ReplyMarkup = createKeyboard(buttons)
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendDownload(chatID int64, d learning.Download) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: d.Filename, Bytes: d.Body})
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) resourceTitle(ctx context.Context, id string) string {
	r, err := b.catalog.Get(ctx, id)
	if err != nil || r == nil {
		return id
	}
	return r.Title
}

func (b *Bot) logMigration(device string, s learning.MigrationStatus) {
	log.Printf("Migration for chat %s: %s (%d%%)", device, s.Message, s.Progress)
}

func deviceID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
