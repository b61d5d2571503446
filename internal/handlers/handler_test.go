package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ui-screenshot-to-prompt/internal/apperr"
	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/mediagroup"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
	"ui-screenshot-to-prompt/internal/session"
)

type sent struct {
	kind    string
	text    string
	name    string
	content []byte
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sent
	callbacks []string
	files     map[string][]byte
}

func (f *fakeMessenger) record(s sent) {
	f.mu.Lock()
	f.sent = append(f.sent, s)
	f.mu.Unlock()
}

func (f *fakeMessenger) SendText(chatID int64, text string) error {
	f.record(sent{kind: "text", text: text})
	return nil
}

func (f *fakeMessenger) SendTyping(chatID int64) {}

func (f *fakeMessenger) SendDocument(chatID int64, name string, content []byte, caption string) error {
	f.record(sent{kind: "document", text: caption, name: name, content: content})
	return nil
}

func (f *fakeMessenger) SendPhoto(chatID int64, name string, content []byte, caption string) error {
	f.record(sent{kind: "photo", text: caption, name: name, content: content})
	return nil
}

func (f *fakeMessenger) SendTextWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	f.record(sent{kind: "keyboard", text: text})
	return 42, nil
}

func (f *fakeMessenger) EditTextWithKeyboard(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	f.record(sent{kind: "edit", text: text})
	return nil
}

func (f *fakeMessenger) AnswerCallback(callbackID, text string, alert bool) error {
	f.mu.Lock()
	f.callbacks = append(f.callbacks, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	data, ok := f.files[fileID]
	if !ok {
		return nil, "", errors.New("file not found")
	}
	return data, "image/png", nil
}

func (f *fakeMessenger) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sent{}
	}
	return f.sent[len(f.sent)-1]
}

type fakePipeline struct {
	mu     sync.Mutex
	calls  []string
	opts   []pipeline.Options
	final  string
	err    error
	visual int
}

func (f *fakePipeline) Process(ctx context.Context, data []byte, opts pipeline.Options) (pipeline.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(data))
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	final := f.final
	if final == "" {
		final = "prompt for " + string(data)
	}
	return pipeline.Result{
		FinalAnalysis:   final,
		Regions:         []pipeline.Region{{Index: 1}, {Index: 2}},
		DetectionMethod: opts.Method,
		DetectionTerm:   opts.Method.Term(),
		PromptSize:      opts.Size,
	}, nil
}

func (f *fakePipeline) Visualize(data []byte, method detect.Method) (pipeline.Visualization, error) {
	f.mu.Lock()
	f.visual++
	f.mu.Unlock()
	return pipeline.Visualization{LabeledImage: []byte("png"), Regions: []pipeline.Region{{Index: 1}}, DetectionTerm: method.Term()}, nil
}

func newHandler(m *fakeMessenger, p *fakePipeline) *Handler {
	return New(Options{
		Telegram: m,
		Pipeline: p,
		Sessions: session.NewStore(session.Options{}),
		Elevate:  true,
	})
}

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 10},
		From:      &tgbotapi.User{ID: 7, UserName: "ann"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func photo(fileID, caption, group string, id int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID:    id,
		Chat:         &tgbotapi.Chat{ID: 10},
		From:         &tgbotapi.User{ID: 7, UserName: "ann"},
		Caption:      caption,
		MediaGroupID: group,
		Photo:        []tgbotapi.PhotoSize{{FileID: "thumb"}, {FileID: fileID}},
	}}
}

func TestParseCaption(t *testing.T) {
	prefs := session.Preferences{Method: detect.MethodBasic, Size: prompt.SizeConcise}

	opts := parseCaption("", prefs, true)
	assert.Equal(t, runOptions{Options: pipeline.Options{Method: detect.MethodBasic, Size: prompt.SizeConcise, Elevate: true}}, opts)

	opts = parseCaption("Advanced, EXTENSIVE please --raw regions", prefs, true)
	assert.Equal(t, detect.MethodAdvanced, opts.Method)
	assert.Equal(t, prompt.SizeExtensive, opts.Size)
	assert.False(t, opts.Elevate)
	assert.True(t, opts.Overlay)

	opts = parseCaption("a basic-looking login page", prefs, false)
	assert.Equal(t, detect.MethodBasic, opts.Method)
	assert.False(t, opts.Elevate)
}

func TestCommands(t *testing.T) {
	m := &fakeMessenger{}
	h := newHandler(m, &fakePipeline{})
	ctx := context.Background()

	require.NoError(t, h.HandleUpdate(ctx, command("/start")))
	assert.Contains(t, m.last().text, "/method basic|advanced")

	require.NoError(t, h.HandleUpdate(ctx, command("/method advanced")))
	assert.Equal(t, "Detection method set to advanced.", m.last().text)
	assert.Equal(t, detect.MethodAdvanced, h.sessions.Preferences(7, "").Method)

	require.NoError(t, h.HandleUpdate(ctx, command("/method magic")))
	assert.Equal(t, "Invalid detection method. Must be 'basic' or 'advanced'", m.last().text)

	require.NoError(t, h.HandleUpdate(ctx, command("/size")))
	assert.Contains(t, m.last().text, "Current prompt size: concise")

	require.NoError(t, h.HandleUpdate(ctx, command("/size extensive")))
	assert.Equal(t, prompt.SizeExtensive, h.sessions.Preferences(7, "").Size)

	require.NoError(t, h.HandleUpdate(ctx, command("/settings")))
	assert.Equal(t, "keyboard", m.last().kind)
	assert.Contains(t, m.last().text, "Detection method: advanced (components)")

	require.NoError(t, h.HandleUpdate(ctx, command("/reset")))
	assert.Equal(t, detect.MethodBasic, h.sessions.Preferences(7, "").Method)

	require.NoError(t, h.HandleUpdate(ctx, command("/nope")))
	assert.Equal(t, "Unknown command. Use /help.", m.last().text)
}

func TestPhotoUsesPreferencesAndCaption(t *testing.T) {
	m := &fakeMessenger{files: map[string][]byte{"big": []byte("shot")}}
	p := &fakePipeline{}
	h := newHandler(m, p)
	h.sessions.SetSize(7, "ann", prompt.SizeExtensive)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("big", "advanced raw regions", "", 1)))

	require.Equal(t, []string{"shot"}, p.calls)
	assert.Equal(t, pipeline.Options{Method: detect.MethodAdvanced, Size: prompt.SizeExtensive, Elevate: false}, p.opts[0])
	assert.Equal(t, 1, p.visual)

	require.Len(t, m.sent, 2)
	assert.Equal(t, "photo", m.sent[0].kind)
	assert.Equal(t, "text", m.sent[1].kind)
	assert.True(t, strings.HasPrefix(m.sent[1].text, "2 components, advanced detection, extensive prompt"))
	assert.Contains(t, m.sent[1].text, "prompt for shot")
}

func TestLongPromptSentAsDocument(t *testing.T) {
	m := &fakeMessenger{files: map[string][]byte{"big": []byte("shot")}}
	h := newHandler(m, &fakePipeline{final: strings.Repeat("x", maxInlinePromptBytes+1)})

	require.NoError(t, h.HandleUpdate(context.Background(), photo("big", "", "", 1)))

	got := m.last()
	assert.Equal(t, "document", got.kind)
	assert.Equal(t, "prompt.txt", got.name)
	assert.Len(t, got.content, maxInlinePromptBytes+1)
}

func TestPipelineErrorsBecomeMessages(t *testing.T) {
	m := &fakeMessenger{files: map[string][]byte{"big": []byte("shot")}}
	h := newHandler(m, &fakePipeline{err: apperr.New(apperr.InvalidArgument, "invalid image")})

	require.NoError(t, h.HandleUpdate(context.Background(), photo("big", "", "", 1)))
	assert.Equal(t, "That file does not look like an image I can read.", m.last().text)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("missing", "", "", 2)))
	assert.Equal(t, "Could not download the screenshot. Please send it again.", m.last().text)
}

func TestDocumentMustBeImage(t *testing.T) {
	m := &fakeMessenger{}
	p := &fakePipeline{}
	h := newHandler(m, p)

	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 10},
		From:     &tgbotapi.User{ID: 7},
		Document: &tgbotapi.Document{FileID: "doc", MimeType: "application/pdf"},
	}}
	require.NoError(t, h.HandleUpdate(context.Background(), upd))
	assert.Empty(t, p.calls)
	assert.Contains(t, m.last().text, "screenshot image")
}

func TestMediaGroupProcessedInOrder(t *testing.T) {
	m := &fakeMessenger{files: map[string][]byte{"a": []byte("first"), "b": []byte("second")}}
	p := &fakePipeline{}
	h := newHandler(m, p)

	var flushed []mediagroup.Group
	ag := mediagroup.New(mediagroup.Options{OnFlush: func(g mediagroup.Group) { flushed = append(flushed, g) }})
	h.SetMediaGroupAggregator(ag)

	require.NoError(t, h.HandleUpdate(context.Background(), photo("b", "", "album", 6)))
	require.NoError(t, h.HandleUpdate(context.Background(), photo("a", "concise", "album", 5)))
	ag.FlushAll()

	require.Len(t, flushed, 1)
	h.HandleMediaGroup(context.Background(), flushed[0])

	assert.Equal(t, []string{"first", "second"}, p.calls)
	require.Len(t, m.sent, 2)
	assert.True(t, strings.HasPrefix(m.sent[0].text, "Screenshot 1/2: "))
	assert.True(t, strings.HasPrefix(m.sent[1].text, "Screenshot 2/2: "))
}

func TestSettingsCallback(t *testing.T) {
	m := &fakeMessenger{}
	h := newHandler(m, &fakePipeline{})

	query := func(from int64, data string) tgbotapi.Update {
		return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "q",
			From:    &tgbotapi.User{ID: from},
			Data:    data,
			Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: 10}},
		}}
	}

	require.NoError(t, h.HandleUpdate(context.Background(), query(7, cb(7, "method", "advanced"))))
	assert.Equal(t, detect.MethodAdvanced, h.sessions.Preferences(7, "").Method)
	assert.Equal(t, "edit", m.last().kind)

	require.NoError(t, h.HandleUpdate(context.Background(), query(8, cb(7, "size", "extensive"))))
	assert.Equal(t, prompt.SizeConcise, h.sessions.Preferences(7, "").Size)
	assert.Equal(t, "These settings belong to someone else.", m.callbacks[len(m.callbacks)-1])
}
