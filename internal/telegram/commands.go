package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
	"voice_translator_bot/internal/pipeline"
)

// commandTable is the static command surface. Transliterated aliases
// are kept for users typing the mode names phonetically.
var commandTable = map[string]func(*Client, context.Context, *models.Message){
	"start":     (*Client).cmdHelp,
	"help":      (*Client).cmdHelp,
	"settings":  (*Client).cmdShowSettings,
	"languages": (*Client).cmdShowLanguages,
	"mode":      (*Client).cmdShowModes,
	"stats":     (*Client).cmdStats,

	"settings_langs_ru_en": languageCommand("ru", "en"),
	"settings_langs_ru_id": languageCommand("ru", "id"),
	"settings_langs_en_id": languageCommand("en", "id"),

	"settings_mode_translate": modeCommand(domain.ModeTranslate),
	"settings_mode_summarize": modeCommand(domain.ModeSummarize),
	"settings_mode_both":      modeCommand(domain.ModeBoth),
	"settings_mode_perevod":   modeCommand(domain.ModeTranslate),
	"settings_mode_sammarajz": modeCommand(domain.ModeSummarize),
	"settings_mode_bof":       modeCommand(domain.ModeBoth),

	"tts":     (*Client).cmdShowTTS,
	"tts_on":  ttsCommand(true),
	"tts_off": ttsCommand(false),
}

// parseCommand extracts the command name from a message text, without
// the slash and without a trailing @botname mention.
func parseCommand(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", false
	}

	name := strings.Fields(text)[0][1:]
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", false
	}

	return strings.ToLower(name), true
}

func (c *Client) dispatchCommand(ctx context.Context, cmd string, msg *models.Message) {
	handler, ok := commandTable[cmd]
	if !ok {
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "command",
		"command": cmd,
		"chat_id": msg.Chat.ID,
		"user_id": userID(msg.From),
	}).Info("handling command")

	handler(c, ctx, msg)
}

func (c *Client) reply(ctx context.Context, msg *models.Message, text string) {
	if _, err := c.transport.SendMessage(ctx, msg.Chat.ID, text, models.ParseModeHTML, msg.ID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "command_reply_failed",
			"chat_id": msg.Chat.ID,
		}).WithError(err).Warn("dropping command reply")
	}
}

func (c *Client) cmdHelp(ctx context.Context, msg *models.Message) {
	c.reply(ctx, msg, strings.Join([]string{
		"🎙️ Send me a voice message and I will transcribe, translate, or summarize it.",
		"",
		"<b>Commands:</b>",
		"/settings — show the current chat settings",
		"/languages — choose the language pair",
		"/mode — choose translate, summarize, or both",
		"/tts — toggle spoken replies",
		"",
		"Voice messages under 30 seconds are always translated; summaries need longer recordings.",
	}, "\n"))
}

func (c *Client) cmdShowSettings(ctx context.Context, msg *models.Message) {
	settings, err := c.settings.Get(ctx, msg.Chat.ID)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "settings_load_failed",
			"chat_id": msg.Chat.ID,
		}).WithError(err).Warn("showing defaults")
		settings = domain.DefaultChatSettings()
	}

	flags := make([]string, 0, len(settings.EnabledLanguages))
	for _, lang := range settings.EnabledLanguages {
		flags = append(flags, lang+" "+pipeline.LangFlag(lang))
	}

	tts := "off"
	if settings.TTSEnabled {
		tts = "on"
	}

	c.reply(ctx, msg, fmt.Sprintf(
		"<b>Current settings</b>\nLanguages: %s\nMode: %s\nVoice replies: %s",
		strings.Join(flags, ", "), settings.Mode, tts))
}

func (c *Client) cmdShowLanguages(ctx context.Context, msg *models.Message) {
	c.reply(ctx, msg, strings.Join([]string{
		"<b>Language pairs</b>",
		"/settings_langs_ru_en — Russian 🇷🇺 + English 🇬🇧",
		"/settings_langs_ru_id — Russian 🇷🇺 + Indonesian 🇮🇩",
		"/settings_langs_en_id — English 🇬🇧 + Indonesian 🇮🇩",
	}, "\n"))
}

func (c *Client) cmdShowModes(ctx context.Context, msg *models.Message) {
	c.reply(ctx, msg, strings.Join([]string{
		"<b>Processing modes</b>",
		"/settings_mode_translate — translate only",
		"/settings_mode_summarize — summarize only (recordings over 30s)",
		"/settings_mode_both — translate and summarize",
	}, "\n"))
}

func (c *Client) cmdShowTTS(ctx context.Context, msg *models.Message) {
	c.reply(ctx, msg, strings.Join([]string{
		"<b>Voice replies</b>",
		"/tts_on — reply with a spoken translation",
		"/tts_off — text replies only",
	}, "\n"))
}

func languageCommand(langs ...string) func(*Client, context.Context, *models.Message) {
	return func(c *Client, ctx context.Context, msg *models.Message) {
		c.updateSettings(ctx, msg, func(s *domain.ChatSettings) string {
			s.EnabledLanguages = append([]string(nil), langs...)
			return "✅ Languages set to " + strings.Join(langs, " + ")
		})
	}
}

func modeCommand(mode domain.Mode) func(*Client, context.Context, *models.Message) {
	return func(c *Client, ctx context.Context, msg *models.Message) {
		c.updateSettings(ctx, msg, func(s *domain.ChatSettings) string {
			s.Mode = mode
			return "✅ Mode set to " + string(mode)
		})
	}
}

func ttsCommand(enabled bool) func(*Client, context.Context, *models.Message) {
	return func(c *Client, ctx context.Context, msg *models.Message) {
		c.updateSettings(ctx, msg, func(s *domain.ChatSettings) string {
			s.TTSEnabled = enabled
			if enabled {
				return "✅ Voice replies enabled"
			}
			return "✅ Voice replies disabled"
		})
	}
}

// updateSettings applies one mutation to the chat's settings after the
// admin check, then confirms to the user.
func (c *Client) updateSettings(ctx context.Context, msg *models.Message, mutate func(*domain.ChatSettings) string) {
	if !c.canConfigure(ctx, msg) {
		c.reply(ctx, msg, "⛔ Only chat administrators can change settings.")
		return
	}

	settings, err := c.settings.Get(ctx, msg.Chat.ID)
	if err != nil {
		settings = domain.DefaultChatSettings()
	}

	confirmation := mutate(&settings)

	if err := c.settings.Set(ctx, msg.Chat.ID, settings); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "settings_save_failed",
			"chat_id": msg.Chat.ID,
		}).WithError(err).Error("settings not persisted")
		c.reply(ctx, msg, "⚠️ Could not save settings, please try again.")
		return
	}

	c.reply(ctx, msg, confirmation)
}

func (c *Client) cmdStats(ctx context.Context, msg *models.Message) {
	if !c.isOwner(msg) {
		return
	}

	stats, err := c.usage.Snapshot(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_load_failed").WithError(err).Error("stats unavailable")
		c.reply(ctx, msg, "⚠️ Statistics are unavailable right now.")
		return
	}

	c.reply(ctx, msg, formatStatsReport(stats))
}

const statsTopLimit = 5

// formatStatsReport renders the owner-facing usage report: totals, the
// most active users and chats, and the last week of daily counters.
func formatStatsReport(stats domain.UsageStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>📊 Usage statistics</b>\n")
	fmt.Fprintf(&b, "Total uses: %d\n", stats.TotalUses())
	fmt.Fprintf(&b, "Users: %d, chats: %d\n", len(stats.Users), len(stats.Chats))

	type namedCount struct {
		name  string
		count int64
	}

	if len(stats.Users) > 0 {
		users := make([]namedCount, 0, len(stats.Users))
		for id, user := range stats.Users {
			name := user.Name
			if name == "" {
				name = id
			}
			users = append(users, namedCount{name: name, count: user.UsageCount})
		}
		sort.Slice(users, func(i, j int) bool {
			if users[i].count != users[j].count {
				return users[i].count > users[j].count
			}
			return users[i].name < users[j].name
		})

		b.WriteString("\n<b>Top users</b>\n")
		for i, user := range users {
			if i == statsTopLimit {
				break
			}
			fmt.Fprintf(&b, "%d. %s — %d\n", i+1, escapeHTML(user.name), user.count)
		}
	}

	if len(stats.Chats) > 0 {
		chats := make([]namedCount, 0, len(stats.Chats))
		for id, chat := range stats.Chats {
			name := chat.Name
			if name == "" {
				name = id
			}
			chats = append(chats, namedCount{name: name, count: chat.UsageCount})
		}
		sort.Slice(chats, func(i, j int) bool {
			if chats[i].count != chats[j].count {
				return chats[i].count > chats[j].count
			}
			return chats[i].name < chats[j].name
		})

		b.WriteString("\n<b>Top chats</b>\n")
		for i, chat := range chats {
			if i == statsTopLimit {
				break
			}
			fmt.Fprintf(&b, "%d. %s — %d\n", i+1, escapeHTML(chat.name), chat.count)
		}
	}

	if len(stats.DailyUsage) > 0 {
		dates := make([]string, 0, len(stats.DailyUsage))
		for date := range stats.DailyUsage {
			dates = append(dates, date)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))
		if len(dates) > 7 {
			dates = dates[:7]
		}

		b.WriteString("\n<b>Last days</b>\n")
		for _, date := range dates {
			fmt.Fprintf(&b, "%s: %d\n", date, stats.DailyUsage[date])
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
