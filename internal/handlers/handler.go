package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/mediagroup"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
	"ui-screenshot-to-prompt/internal/session"
)

const maxInlinePromptBytes = 3500

// Messenger is the subset of *telegram.Client used by the handler.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTyping(chatID int64)
	SendDocument(chatID int64, name string, content []byte, caption string) error
	SendPhoto(chatID int64, name string, content []byte, caption string) error
	SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string, alert bool) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Pipeline interface {
	Process(ctx context.Context, data []byte, opts pipeline.Options) (pipeline.Result, error)
	Visualize(data []byte, method detect.Method) (pipeline.Visualization, error)
}

type Options struct {
	Telegram Messenger
	Pipeline Pipeline
	Sessions *session.Store
	Logger   *slog.Logger
	Elevate  bool
	// ScreenshotTimeout bounds each screenshot of an album. Zero means no extra bound.
	ScreenshotTimeout time.Duration
}

type Handler struct {
	tg         Messenger
	pipeline   Pipeline
	sessions   *session.Store
	logger     *slog.Logger
	elevate    bool
	timeout    time.Duration
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(session.Options{})
	}

	return &Handler{
		tg:       opts.Telegram,
		pipeline: opts.Pipeline,
		sessions: sessions,
		logger:   logger,
		elevate:  opts.Elevate,
		timeout:  opts.ScreenshotTimeout,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(update.CallbackQuery)
	}
	if update.Message == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	var userID int64
	var username string
	if msg.From != nil {
		userID = msg.From.ID
		username = msg.From.UserName
	}

	switch {
	case msg.IsCommand():
		return h.handleCommand(chatID, userID, username, msg)
	case len(msg.Photo) > 0:
		photo := msg.Photo[len(msg.Photo)-1]
		return h.handleScreenshot(ctx, chatID, userID, username, msg, photo.FileID)
	case msg.Document != nil:
		if !strings.HasPrefix(msg.Document.MimeType, "image/") {
			return h.tg.SendText(chatID, "Please send a screenshot image (PNG, JPEG, GIF or WebP).")
		}
		return h.handleScreenshot(ctx, chatID, userID, username, msg, msg.Document.FileID)
	case strings.TrimSpace(msg.Text) != "":
		return h.tg.SendText(chatID, "Send me a UI screenshot and I will turn it into a prompt. /help lists the options.")
	}
	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processScreenshots(ctx, group.ChatID, group.UserID, group.Username, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(chatID int64, userID int64, username string, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID, "UI Screenshot to Prompt\n\n"+
			"Send a screenshot of any interface and I will describe its layout, "+
			"regions and interactions as a prompt you can hand to a design or code model.\n\n"+helpText)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "method":
		if args == "" {
			return h.tg.SendText(chatID, fmt.Sprintf("Current detection method: %s\nUsage: /method basic|advanced", h.sessions.Preferences(userID, username).Method))
		}
		m, err := detect.ParseMethod(args)
		if err != nil {
			return h.tg.SendText(chatID, capitalize(err.Error()))
		}
		h.sessions.SetMethod(userID, username, m)
		return h.tg.SendText(chatID, fmt.Sprintf("Detection method set to %s.", m))
	case "size":
		if args == "" {
			return h.tg.SendText(chatID, fmt.Sprintf("Current prompt size: %s\nUsage: /size concise|extensive", h.sessions.Preferences(userID, username).Size))
		}
		s, err := prompt.ParseSize(args)
		if err != nil {
			return h.tg.SendText(chatID, capitalize(err.Error()))
		}
		h.sessions.SetSize(userID, username, s)
		return h.tg.SendText(chatID, fmt.Sprintf("Prompt size set to %s.", s))
	case "settings":
		prefs := h.sessions.Preferences(userID, username)
		_, err := h.tg.SendTextWithKeyboard(chatID, settingsText(prefs, h.elevate), settingsKeyboard(userID, prefs))
		return err
	case "reset":
		h.sessions.Reset(userID)
		return h.tg.SendText(chatID, "Preferences restored to defaults.")
	default:
		return h.tg.SendText(chatID, "Unknown command. Use /help.")
	}
}

const helpText = "Commands:\n" +
	"/method basic|advanced - region detection method\n" +
	"/size concise|extensive - length of the final prompt\n" +
	"/settings - show and change preferences\n" +
	"/reset - restore defaults\n\n" +
	"Caption keywords apply to one screenshot only:\n" +
	"basic, advanced, concise, extensive, raw (skip prompt elevation), regions (also send the detected regions)."

func (h *Handler) handleScreenshot(ctx context.Context, chatID, userID int64, username string, msg *tgbotapi.Message, fileID string) error {
	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			Username:     username,
			MediaGroupID: msg.MediaGroupID,
			MessageID:    msg.MessageID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}
	return h.processScreenshots(ctx, chatID, userID, username, msg.Caption, []string{fileID})
}

func (h *Handler) processScreenshots(ctx context.Context, chatID, userID int64, username, caption string, fileIDs []string) error {
	opts := parseCaption(caption, h.sessions.Preferences(userID, username), h.elevate)

	for i, fileID := range fileIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		label := ""
		if len(fileIDs) > 1 {
			label = fmt.Sprintf("Screenshot %d/%d", i+1, len(fileIDs))
		}
		if err := h.processOne(ctx, chatID, fileID, label, opts); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) processOne(ctx context.Context, chatID int64, fileID, label string, opts runOptions) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.tg.SendTyping(chatID)

	data, _, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("screenshot download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, withLabel(label, "Could not download the screenshot. Please send it again."))
	}

	if opts.Overlay {
		vis, err := h.pipeline.Visualize(data, opts.Method)
		if err != nil {
			h.logger.Warn("overlay failed", "chat_id", chatID, "err", err)
		} else {
			caption := withLabel(label, fmt.Sprintf("%d %ss detected", len(vis.Regions), vis.DetectionTerm))
			if err := h.tg.SendPhoto(chatID, "regions.png", vis.LabeledImage, caption); err != nil {
				h.logger.Warn("send overlay failed", "chat_id", chatID, "err", err)
			}
		}
	}

	res, err := h.pipeline.Process(ctx, data, opts.Options)
	if err != nil {
		h.logger.Error("pipeline failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, withLabel(label, userMessage(err)))
	}

	return h.sendResult(chatID, label, res)
}

func (h *Handler) sendResult(chatID int64, label string, res pipeline.Result) error {
	summary := fmt.Sprintf("%d %ss, %s detection, %s prompt", len(res.Regions), res.DetectionTerm, res.DetectionMethod, res.PromptSize)
	if res.SuperPromptProvider != "" {
		summary += ", elevated by " + res.SuperPromptProvider
	}
	summary = withLabel(label, summary)

	if len(res.FinalAnalysis) > maxInlinePromptBytes {
		return h.tg.SendDocument(chatID, "prompt.txt", []byte(res.FinalAnalysis), summary)
	}
	return h.tg.SendText(chatID, summary+"\n\n"+res.FinalAnalysis)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), apperr.IsCode(err, apperr.Timeout):
		return "Processing took too long. Please try again."
	case apperr.IsCode(err, apperr.InvalidArgument):
		return "That file does not look like an image I can read."
	case apperr.IsCode(err, apperr.Unavailable), apperr.IsCode(err, apperr.NotConfigured):
		return "The vision model is unavailable right now. Please try again later."
	default:
		return "Something went wrong while processing the screenshot."
	}
}

func withLabel(label, text string) string {
	if label == "" {
		return text
	}
	return label + ": " + text
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
