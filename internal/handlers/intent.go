package handlers

import (
	"strings"
	"unicode"

	"ui-screenshot-to-prompt/internal/detect"
	"ui-screenshot-to-prompt/internal/pipeline"
	"ui-screenshot-to-prompt/internal/prompt"
	"ui-screenshot-to-prompt/internal/session"
)

// runOptions are the settings for a single screenshot run.
type runOptions struct {
	pipeline.Options
	Overlay bool
}

// parseCaption applies one-off caption keywords on top of the user's preferences.
// Unknown words are ignored so ordinary captions still work.
func parseCaption(caption string, prefs session.Preferences, elevate bool) runOptions {
	opts := runOptions{Options: pipeline.Options{
		Method:  prefs.Method,
		Size:    prefs.Size,
		Elevate: elevate,
	}}

	words := strings.FieldsFunc(strings.ToLower(caption), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, w := range words {
		w = strings.TrimLeft(w, "-")
		if m, err := detect.ParseMethod(w); err == nil {
			opts.Method = m
			continue
		}
		if s, err := prompt.ParseSize(w); err == nil {
			opts.Size = s
			continue
		}
		switch w {
		case "raw":
			opts.Elevate = false
		case "regions", "components", "overlay":
			opts.Overlay = true
		}
	}
	return opts
}
