package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	"voice_translator_bot/internal/logging"
)

// canConfigure reports whether the message author may change this
// chat's settings. Private chats belong to their user; in groups only
// the creator and administrators qualify.
func (c *Client) canConfigure(ctx context.Context, msg *models.Message) bool {
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}
	if c.members == nil || msg.From == nil {
		return false
	}

	member, err := c.members.GetChatMember(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "admin_check_failed",
			"chat_id": msg.Chat.ID,
			"user_id": msg.From.ID,
		}).WithError(err).Warn("denying settings change")
		return false
	}

	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator:
		return true
	}
	return false
}

// isOwner reports whether the message author is the configured bot
// owner, matched by numeric id or by username (case-insensitive).
func (c *Client) isOwner(msg *models.Message) bool {
	if msg.From == nil {
		return false
	}
	if c.ownerID != 0 && msg.From.ID == c.ownerID {
		return true
	}
	if c.ownerUsername != "" && strings.EqualFold(msg.From.Username, c.ownerUsername) {
		return true
	}
	return false
}
