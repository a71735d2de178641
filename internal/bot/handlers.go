package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/example/geolearn/internal/learning"
	"github.com/example/geolearn/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch cmd := message.Command(); cmd {
	case "start":
		return b.handleStart(chatID)
	case "help":
		return b.reply(chatID, helpText, nil)
	case "menu":
		return b.showMainMenu(chatID)
	case "resources":
		return b.handleResources(ctx, chatID, args)
	case "read":
		if args == "" {
			return b.reply(chatID, "Usage: /read <resource id>", nil)
		}
		return b.openReader(ctx, chatID, args)
	case "bookmark":
		return b.handleBookmark(ctx, chatID, args, true)
	case "unbookmark":
		return b.handleBookmark(ctx, chatID, args, false)
	case "bookmarks":
		return b.handleBookmarks(ctx, chatID)
	case "note":
		return b.handleNote(ctx, chatID, args)
	case "done":
		return b.handleDone(ctx, chatID, args)
	case "progress":
		return b.handleProgress(ctx, chatID)
	case "profile":
		return b.handleProfile(ctx, chatID)
	case "setname":
		return b.handleSetName(ctx, chatID, args)
	case "setlevel":
		return b.handleSetLevel(ctx, chatID, args)
	case "login":
		return b.handleLogin(ctx, chatID, args)
	case "logout":
		return b.handleLogout(ctx, chatID)
	case "sync":
		return b.handleSync(ctx, chatID)
	case "migrate":
		return b.handleMigrate(ctx, chatID)
	case "backup":
		return b.handleBackup(ctx, chatID)
	case "export":
		return b.handleExport(ctx, chatID)
	case "achievements":
		return b.handleAchievements(ctx, chatID)
	default:
		// /read_<id> links sent in lists and reminders
		if id := strings.TrimPrefix(cmd, "read_"); id != cmd && id != "" {
			return b.openReader(ctx, chatID, id)
		}
		return b.reply(chatID, "Unknown command. Use /menu to show the main menu.", b.MainMenuButtons())
	}
}

const helpText = `📖 Commands

Learning:
/resources [category] - Browse the catalog
/read <id> - Open a resource
/bookmark <id>, /unbookmark <id>, /bookmarks
/note <id> <text> - Save a note for a resource
/done <id> - Toggle completion

You:
/progress - Your learning progress
/profile - Your profile
/setname <name>, /setlevel <level>
/achievements - Your achievements

Data:
/login <email>, /logout - Cloud sync
/sync - Reload from the cloud
/migrate - Copy local data to the cloud
/backup - Download a backup of local data
/export - Download your learning data`

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to the GEO learning portal!\n\n" +
		"Browse curated guides, case studies and tools, track your reading progress, " +
		"bookmark what you want to come back to and keep notes along the way.\n\n" +
		"Your progress is stored on this chat. Use /login <email> to sync it to the cloud.\n\n" +
		helpText
	return b.reply(chatID, text, b.MainMenuButtons())
}

func (b *Bot) handleResources(ctx context.Context, chatID int64, category string) error {
	resources, err := b.catalog.List(ctx, category)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		categories, err := b.catalog.Categories(ctx)
		if err != nil {
			return err
		}
		return b.reply(chatID, "No resources found. Categories: "+strings.Join(categories, ", "), nil)
	}

	c := learning.FromContext(ctx)
	profile := c.Profile()

	var sb strings.Builder
	sb.WriteString("📚 Resources\n")
	current := ""
	for _, r := range resources {
		if r.Category != current {
			current = r.Category
			fmt.Fprintf(&sb, "\n%s\n", strings.ToUpper(strings.ReplaceAll(current, "_", " ")))
		}
		fmt.Fprintf(&sb, "%s %s (%s, %s)", statusIcon(c, r.ID), r.Title, r.Difficulty, r.Duration)
		if profile.HasBookmark(r.ID) {
			sb.WriteString(" 🔖")
		}
		fmt.Fprintf(&sb, "\n   /read_%s\n", r.ID)
	}
	return b.reply(chatID, sb.String(), nil)
}

func statusIcon(c *learning.Container, id string) string {
	e, ok := c.Entry(id)
	switch {
	case e.Completed:
		return "✅"
	case ok && e.Progress > 0:
		return fmt.Sprintf("⏳%d%%", e.Progress)
	default:
		return "▫️"
	}
}

func (b *Bot) handleBookmark(ctx context.Context, chatID int64, id string, add bool) error {
	if id == "" {
		return b.reply(chatID, "Please provide a resource id, e.g. /bookmark learning_guides_geo_fundamentals", nil)
	}
	c := learning.FromContext(ctx)
	if add {
		c.AddBookmark(id)
		return b.reply(chatID, "🔖 Bookmarked "+b.resourceTitle(ctx, id), nil)
	}
	c.RemoveBookmark(id)
	return b.reply(chatID, "Removed bookmark "+b.resourceTitle(ctx, id), nil)
}

func (b *Bot) toggleBookmark(ctx context.Context, chatID int64, id string) error {
	c := learning.FromContext(ctx)
	return b.handleBookmark(ctx, chatID, id, !c.Profile().HasBookmark(id))
}

func (b *Bot) handleBookmarks(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	bookmarks := c.Profile().Bookmarks
	if len(bookmarks) == 0 {
		return b.reply(chatID, "You have no bookmarks yet. Use /bookmark <id> or the 🔖 button in the reader.", nil)
	}

	var sb strings.Builder
	sb.WriteString("🔖 Bookmarks\n\n")
	for _, id := range bookmarks {
		fmt.Fprintf(&sb, "%s %s /read_%s\n", statusIcon(c, id), b.resourceTitle(ctx, id), id)
	}
	return b.reply(chatID, sb.String(), nil)
}

func (b *Bot) handleNote(ctx context.Context, chatID int64, args string) error {
	id, text, _ := strings.Cut(args, " ")
	if id == "" {
		return b.reply(chatID, "Usage: /note <resource id> <text>", nil)
	}
	c := learning.FromContext(ctx)
	c.AddNote(id, strings.TrimSpace(text))
	return b.reply(chatID, "📝 Note saved for "+b.resourceTitle(ctx, id), nil)
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, id string) error {
	if id == "" {
		return b.reply(chatID, "Usage: /done <resource id>", nil)
	}
	c := learning.FromContext(ctx)
	if c.ToggleCompletion(id) {
		return b.reply(chatID, fmt.Sprintf("✅ %s completed! Total progress: %d%%", b.resourceTitle(ctx, id), c.Profile().TotalProgress), nil)
	}
	return b.reply(chatID, fmt.Sprintf("↩️ %s marked as not done. Total progress: %d%%", b.resourceTitle(ctx, id), c.Profile().TotalProgress), nil)
}

func (b *Bot) handleProgress(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	if c.IsLoading() {
		return b.reply(chatID, "⏳ Loading your data, please try again in a moment.", nil)
	}

	progress := c.Progress()
	if len(progress) == 0 {
		return b.reply(chatID, "You haven't started any resource yet. Use /resources to begin.", nil)
	}

	ids := make([]string, 0, len(progress))
	for id := range progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Learning progress: %d%%\n", c.Profile().TotalProgress)
	fmt.Fprintf(&sb, "Completed %d, in progress %d, of %d started\n\n", progress.CompletedCount(), progress.InProgressCount(), len(progress))
	for _, id := range ids {
		e := progress[id]
		fmt.Fprintf(&sb, "%s %s - %d%%", statusIcon(c, id), b.resourceTitle(ctx, id), e.Progress)
		if e.CompletedAt != nil {
			fmt.Fprintf(&sb, " (done %s)", e.CompletedAt.Format("2006-01-02"))
		}
		sb.WriteString("\n")
	}
	return b.reply(chatID, sb.String(), nil)
}

func (b *Bot) handleProfile(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	if c.IsLoading() {
		return b.reply(chatID, "⏳ Loading your data, please try again in a moment.", nil)
	}

	p := c.Profile()
	summary := learning.Summarize(p, c.Progress())

	storage := "this chat"
	if c.BackendName() == "remote" {
		storage = "cloud"
	}
	email := p.Email
	if email == "" {
		email = "-"
	}

	text := fmt.Sprintf("👤 %s\n"+
		"Email: %s\n"+
		"Level: %s\n"+
		"Tier by progress: %s\n\n"+
		"Progress: %d%%\n"+
		"Completed modules: %d\n"+
		"Bookmarks: %d\n"+
		"Notes: %d\n\n"+
		"Data stored in: %s",
		p.Name, email, p.Level, learning.LevelFor(p.TotalProgress),
		summary.TotalProgress, summary.CompletedModules, summary.TotalBookmarks, summary.TotalNotes,
		storage)
	return b.reply(chatID, text, nil)
}

func (b *Bot) handleSetName(ctx context.Context, chatID int64, name string) error {
	c := learning.FromContext(ctx)
	if err := c.UpdateProfile(learning.ProfileUpdate{Name: &name}); err != nil {
		return b.reply(chatID, "❌ Please provide a name of 1 to 64 characters: /setname <name>", nil)
	}
	return b.reply(chatID, "✅ Name updated to "+name, nil)
}

func (b *Bot) handleSetLevel(ctx context.Context, chatID int64, args string) error {
	c := learning.FromContext(ctx)
	level := models.Level(strings.ToLower(args))
	if err := c.UpdateProfile(learning.ProfileUpdate{Level: &level}); err != nil {
		return b.reply(chatID, "❌ Level must be one of: beginner, intermediate, expert, specialized", nil)
	}
	return b.reply(chatID, "✅ Level set to "+string(level), nil)
}

func (b *Bot) handleLogin(ctx context.Context, chatID int64, email string) error {
	user, err := b.sessions.SignIn(ctx, deviceID(chatID), email)
	if err != nil {
		log.Printf("Sign in failed for chat %d: %v", chatID, err)
		return b.reply(chatID, "❌ Please provide a valid email: /login <email>", nil)
	}
	text := "✅ Signed in as " + user.Email
	if b.registry.RemoteEnabled() {
		text += "\nYour progress now syncs to the cloud. Use /migrate to copy what you did on this chat."
	} else {
		text += "\nCloud sync is not configured; your data stays on this chat."
	}
	return b.reply(chatID, text, nil)
}

func (b *Bot) handleLogout(ctx context.Context, chatID int64) error {
	if err := b.sessions.SignOut(ctx, deviceID(chatID)); err != nil {
		return err
	}
	return b.reply(chatID, "👋 Signed out. Your local data is used again.", nil)
}

func (b *Bot) handleSync(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	if c.User() == nil {
		return b.reply(chatID, "Please /login first.", nil)
	}
	c.SyncData(ctx)
	return b.reply(chatID, fmt.Sprintf("🔄 Synced. Total progress: %d%%", c.Profile().TotalProgress), nil)
}

func (b *Bot) handleMigrate(ctx context.Context, chatID int64) error {
	m, err := b.registry.Migrator(ctx, deviceID(chatID))
	if err != nil {
		return err
	}

	err = m.Migrate(ctx)
	status := m.Status()
	switch {
	case err == nil:
		return b.reply(chatID, fmt.Sprintf("☁️ %s (%d%%)", status.Message, status.Progress), nil)
	case errors.Is(err, learning.ErrMigrationRunning):
		return b.reply(chatID, "⏳ A migration is already running.", nil)
	default:
		return b.reply(chatID, "❌ "+status.Message, nil)
	}
}

func (b *Bot) handleBackup(ctx context.Context, chatID int64) error {
	kv := b.registry.Store(deviceID(chatID))
	hasProfile, hasProgress, err := learning.LocalDataStatus(ctx, kv)
	if err != nil {
		return err
	}
	if !hasProfile && !hasProgress {
		return b.reply(chatID, "There is no local data to back up.", nil)
	}

	d, err := learning.BuildBackup(ctx, kv, b.now())
	if err != nil {
		return err
	}
	return b.sendDownload(chatID, d)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	d, err := c.ExportLearningData(b.now())
	if err != nil {
		return err
	}
	return b.sendDownload(chatID, d)
}

func (b *Bot) handleAchievements(ctx context.Context, chatID int64) error {
	c := learning.FromContext(ctx)
	p, m := c.Profile(), c.Progress()

	var sb strings.Builder
	sb.WriteString("🏆 Achievements\n\n")
	for _, a := range learning.Achievements {
		icon := "🔒"
		if a.Unlocked(p, m) {
			icon = "🏅"
		}
		fmt.Fprintf(&sb, "%s %s - %s\n", icon, a.Title, a.Description)
	}
	return b.reply(chatID, sb.String(), nil)
}
