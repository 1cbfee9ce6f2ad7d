package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"voice_translator_bot/internal/domain"
	"voice_translator_bot/internal/logging"
	"voice_translator_bot/internal/split"
)

// maxMessageLength is the transport limit applied to one outbound text
// message, including the part marker.
const maxMessageLength = 3000

// DeliveryResult is the single observable text outcome of one event.
type DeliveryResult int

const (
	// DeliveryUpdated means the placeholder was edited in place.
	DeliveryUpdated DeliveryResult = iota + 1
	// DeliveryResent means new message(s) were sent instead.
	DeliveryResent
)

// Deliverer turns a rendered result into exactly one visible text
// outcome: either the placeholder is edited in place or a fresh message
// sequence is sent as a reply to the origin, never both.
type Deliverer struct {
	transport Transport
	logger    *logrus.Entry
	maxLength int
}

// NewDeliverer constructs a Deliverer over the transport.
func NewDeliverer(transport Transport, logger *logrus.Entry) (*Deliverer, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Deliverer{
		transport: transport,
		logger:    logger,
		maxLength: maxMessageLength,
	}, nil
}

// Deliver sends the rendered text. A single-chunk result edits the
// placeholder when one exists; anything else is sent as a reply
// sequence to the origin. The placeholder is only deleted in contexts
// where deletion cannot race a user-visible edit.
func (d *Deliverer) Deliver(ctx context.Context, text string, origin MessageRef, placeholder *MessageRef, kind domain.ChatKind) (DeliveryResult, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("nothing to deliver")
	}

	chunks := split.Split(text, d.maxLength, split.MarkupHTML)

	if len(chunks) == 1 && placeholder != nil {
		err := d.transport.EditMessageText(ctx, *placeholder, chunks[0].Text, models.ParseModeHTML)
		if err == nil || isNotModified(err) {
			return DeliveryUpdated, nil
		}

		d.logger.WithFields(logging.Fields{
			"event":   "delivery_edit_failed",
			"chat_id": origin.ChatID,
		}).WithError(err).Warn("placeholder edit failed, resending")
	}

	// An edit cannot represent a paginated result, and a failed edit
	// leaves the placeholder in an unknown state. Either way the result
	// goes out as new messages; the placeholder is removed only where
	// that is safe.
	if placeholder != nil && kind.AllowsPlaceholderDelete() {
		if err := d.transport.DeleteMessage(ctx, *placeholder); err != nil {
			d.logger.WithFields(logging.Fields{
				"event":   "delivery_placeholder_delete_failed",
				"chat_id": origin.ChatID,
			}).WithError(err).Warn("keeping stale placeholder")
		}
	}

	delivered := 0
	for _, chunk := range chunks {
		replyTo := 0
		if chunk.Index == 1 {
			replyTo = origin.MessageID
		}

		if _, err := d.transport.SendMessage(ctx, origin.ChatID, chunk.Text, models.ParseModeHTML, replyTo); err != nil {
			d.logger.WithFields(logging.Fields{
				"event":   "delivery_chunk_failed",
				"chat_id": origin.ChatID,
				"part":    chunk.Index,
			}).WithError(err).Warn("chunk rejected, sending fallback")

			fallback := split.Fallback(chunk.Text, d.maxLength)
			if _, err := d.transport.SendMessage(ctx, origin.ChatID, fallback, "", replyTo); err != nil {
				d.logger.WithFields(logging.Fields{
					"event":   "delivery_fallback_failed",
					"chat_id": origin.ChatID,
					"part":    chunk.Index,
				}).WithError(err).Error("dropping chunk")
				continue
			}
		}
		delivered++
	}

	if delivered == 0 {
		return 0, errors.New("every chunk failed to deliver")
	}

	return DeliveryResent, nil
}

// isNotModified recognizes the transport's rejection of an edit that
// would not change the message; an identical result counts as success.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
