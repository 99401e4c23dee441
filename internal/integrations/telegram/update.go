package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"jarvis-agent/internal/domain"
)

type tgUpdate struct {
	UpdateID      json.Number      `json:"update_id"`
	Message       *tgMessage       `json:"message"`
	EditedMessage *tgMessage       `json:"edited_message"`
	CallbackQuery *tgCallbackQuery `json:"callback_query"`
}

type tgChat struct {
	ID any `json:"id"`
}

type tgMessage struct {
	MessageID json.Number `json:"message_id"`
	Chat      tgChat      `json:"chat"`
	Text      string      `json:"text"`
	Caption   string      `json:"caption"`
	Voice     *tgVoice    `json:"voice"`
	Audio     *tgVoice    `json:"audio"`
}

type tgVoice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	MimeType string `json:"mime_type"`
}

type tgCallbackQuery struct {
	ID      string     `json:"id"`
	Data    string     `json:"data"`
	Message *tgMessage `json:"message"`
}

// Update is a decoded webhook delivery.
type Update struct {
	Event domain.InboundEvent
	// CallbackID is set for inline button presses and must be answered.
	CallbackID string
}

// ParseUpdate decodes a webhook body. ok is false for updates the bot does
// not act on (edits, stickers, service messages). Numeric ids are decoded as
// json.Number so large chat ids keep their exact value.
func ParseUpdate(body []byte) (u Update, ok bool, err error) {
	var raw tgUpdate
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Update{}, false, fmt.Errorf("telegram: decode update: %w", err)
	}
	if raw.UpdateID == "" {
		return Update{}, false, errors.New("telegram: update_id is missing")
	}
	if _, err := strconv.ParseInt(raw.UpdateID.String(), 10, 64); err != nil {
		return Update{}, false, fmt.Errorf("telegram: update_id %q: %w", raw.UpdateID, err)
	}
	ev := domain.InboundEvent{EventID: raw.UpdateID.String()}

	var msg *tgMessage
	switch {
	case raw.CallbackQuery != nil:
		if raw.CallbackQuery.Message == nil || raw.CallbackQuery.Data == "" {
			return Update{}, false, nil
		}
		msg = raw.CallbackQuery.Message
		ev.CallbackData = raw.CallbackQuery.Data
		u.CallbackID = raw.CallbackQuery.ID
	case raw.Message != nil:
		msg = raw.Message
		ev.Text = msg.Text
		if ev.Text == "" {
			ev.Text = msg.Caption
		}
		switch {
		case msg.Voice != nil:
			ev.VoiceFileID = msg.Voice.FileID
		case msg.Audio != nil:
			ev.VoiceFileID = msg.Audio.FileID
		}
	default:
		return Update{}, false, nil
	}

	conversationID, err := domain.ConversationID(msg.Chat.ID)
	if err != nil {
		return Update{}, false, fmt.Errorf("telegram: chat id: %w", err)
	}
	ev.ConversationID = conversationID
	if ev.Text == "" && ev.VoiceFileID == "" && ev.CallbackData == "" {
		return Update{}, false, nil
	}
	u.Event = ev
	return u, true, nil
}
