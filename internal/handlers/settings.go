package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/prompt"
	"ui-screenshot-to-prompt/internal/session"
)

const settingsCallbackPrefix = "st"

func (h *Handler) handleCallback(q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.Message.Chat == nil || q.From == nil {
		return nil
	}
	parts := strings.Split(strings.TrimSpace(q.Data), ":")
	if len(parts) < 3 || parts[0] != settingsCallbackPrefix {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "These settings belong to someone else.", true)
		return nil
	}

	action := parts[2]
	args := parts[3:]
	username := q.From.UserName

	switch action {
	case "method":
		if len(args) == 1 {
			if m, err := detect.ParseMethod(args[0]); err == nil {
				h.sessions.SetMethod(ownerID, username, m)
			}
		}
	case "size":
		if len(args) == 1 {
			if s, err := prompt.ParseSize(args[0]); err == nil {
				h.sessions.SetSize(ownerID, username, s)
			}
		}
	case "reset":
		h.sessions.Reset(ownerID)
	}
	_ = h.tg.AnswerCallback(q.ID, "Saved", false)

	prefs := h.sessions.Preferences(ownerID, username)
	return h.tg.EditTextWithKeyboard(q.Message.Chat.ID, q.Message.MessageID, settingsText(prefs, h.elevate), settingsKeyboard(ownerID, prefs))
}

func settingsText(prefs session.Preferences, elevate bool) string {
	return fmt.Sprintf("Settings\n\nDetection method: %s (%ss)\nPrompt size: %s\nPrompt elevation: %s\n\nAdd \"raw\" to a caption to skip elevation once.",
		prefs.Method, prefs.Method.Term(), prefs.Size, onOff(elevate))
}

func settingsKeyboard(ownerID int64, prefs session.Preferences) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(mark(prefs.Method == detect.MethodBasic, "Basic"), cb(ownerID, "method", string(detect.MethodBasic))),
			tgbotapi.NewInlineKeyboardButtonData(mark(prefs.Method == detect.MethodAdvanced, "Advanced"), cb(ownerID, "method", string(detect.MethodAdvanced))),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(mark(prefs.Size == prompt.SizeConcise, "Concise"), cb(ownerID, "size", string(prompt.SizeConcise))),
			tgbotapi.NewInlineKeyboardButtonData(mark(prefs.Size == prompt.SizeExtensive, "Extensive"), cb(ownerID, "size", string(prompt.SizeExtensive))),
		},
		[]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
		},
	)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", settingsCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func mark(selected bool, label string) string {
	if selected {
		return "✅ " + label
	}
	return label
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
