package bot

import (
	"context"
	"fmt"

	"github.com/example/geolearn/internal/catalog"
	"github.com/example/geolearn/internal/learning"
	"github.com/example/geolearn/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Constants for callback data
const (
	callbackPrevPage = "page_prev"
	callbackNextPage = "page_next"
	callbackBookmark = "bm:"
	callbackDone     = "done:"
)

// reader is the document a chat currently has open
type reader struct {
	resource models.Resource
	title    string
	pages    []string
	page     int
}

func (b *Bot) openReader(ctx context.Context, chatID int64, id string) error {
	r, err := b.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return b.reply(chatID, fmt.Sprintf("❌ Resource %q not found. Use /resources to see the catalog.", id), nil)
	}

	source, err := b.content.Fetch(ctx, *r)
	if err != nil {
		b.reply(chatID, "❌ Failed to load the document, please try again later.", nil)
		return err
	}

	doc := catalog.ParseDocument(source, b.config.PageSize)
	rd := &reader{resource: *r, title: doc.Title, pages: doc.Pages}
	if rd.title == "" {
		rd.title = r.Title
	}

	b.mu.Lock()
	b.readers[chatID] = rd
	b.mu.Unlock()

	c := learning.FromContext(ctx)
	b.tracker.Track(c, r.ID, learning.PageProgress(0, len(rd.pages)))

	msg := tgbotapi.NewMessage(chatID, rd.text(0))
	msg.ReplyMarkup = rd.keyboard(0, c)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) turnPage(ctx context.Context, chatID int64, messageID int, delta int) error {
	b.mu.Lock()
	rd, ok := b.readers[chatID]
	if !ok {
		b.mu.Unlock()
		return b.reply(chatID, "No document is open. Use /resources to pick one.", nil)
	}
	page := rd.page + delta
	if page < 0 || page >= len(rd.pages) {
		b.mu.Unlock()
		return nil
	}
	rd.page = page
	b.mu.Unlock()

	c := learning.FromContext(ctx)
	b.tracker.Track(c, rd.resource.ID, learning.PageProgress(page, len(rd.pages)))

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, rd.text(page), rd.keyboard(page, c))
	_, err := b.api.Send(edit)
	return err
}

func (r *reader) text(page int) string {
	return fmt.Sprintf("📖 %s (%d/%d)\n\n%s", r.title, page+1, len(r.pages), r.pages[page])
}

func (r *reader) keyboard(page int, c *learning.Container) tgbotapi.InlineKeyboardMarkup {
	var nav []MenuButton
	if page > 0 {
		nav = append(nav, MenuButton{Text: "⬅️ Previous", CallbackData: callbackPrevPage})
	}
	if page < len(r.pages)-1 {
		nav = append(nav, MenuButton{Text: "Next ➡️", CallbackData: callbackNextPage})
	}

	bookmark := "🔖 Bookmark"
	if c.Profile().HasBookmark(r.resource.ID) {
		bookmark = "❌ Remove bookmark"
	}
	done := "✅ Mark as done"
	if e, _ := c.Entry(r.resource.ID); e.Completed {
		done = "↩️ Mark as not done"
	}

	rows := [][]MenuButton{
		{
			{Text: bookmark, CallbackData: callbackBookmark + r.resource.ID},
			{Text: done, CallbackData: callbackDone + r.resource.ID},
		},
		{{Text: "⬅️ Main menu", CallbackData: "main_menu"}},
	}
	if len(nav) > 0 {
		rows = append([][]MenuButton{nav}, rows...)
	}
	return createKeyboard(rows)
}
