package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"staffhub/internal/requestctx"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders user-facing messages in the locale carried by the request context.
type Translator struct {
	bundle        *goi18n.Bundle
	defaultLocale string
	supported     []language.Tag
}

// New loads the embedded locale files. defaultLocale is used when the context carries none.
func New(defaultLocale string) (*Translator, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("i18n: default locale %q: %w", defaultLocale, err)
	}

	bundle := goi18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales dir: %w", err)
	}
	// NewBundle registers def on its own, so only parsed files count as loaded.
	supported := []language.Tag{def}
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		mf, err := bundle.ParseMessageFileBytes(data, e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
		if mf.Tag == def {
			found = true
			continue
		}
		supported = append(supported, mf.Tag)
	}
	if !found {
		return nil, fmt.Errorf("i18n: no messages for default locale %q", defaultLocale)
	}
	return &Translator{bundle: bundle, defaultLocale: def.String(), supported: supported}, nil
}

// Supported lists the available locales, default first.
func (t *Translator) Supported() []language.Tag {
	out := make([]language.Tag, len(t.supported))
	copy(out, t.supported)
	return out
}

func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// Locale returns the locale stored in ctx, or the default.
func (t *Translator) Locale(ctx context.Context) string {
	if locale := requestctx.GetLocale(ctx); locale != "" {
		return locale
	}
	return t.defaultLocale
}

// T translates messageID in the context locale. Unknown ids come back unchanged.
func (t *Translator) T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	return t.localize(t.Locale(ctx), &goi18n.LocalizeConfig{MessageID: messageID, TemplateData: first(templateData)})
}

// Plural translates a message that has one/other forms selected by count.
// count is also exposed to the template as .Count.
func (t *Translator) Plural(ctx context.Context, messageID string, count int) string {
	return t.localize(t.Locale(ctx), &goi18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// In translates messageID in an explicit locale, for output that has no request.
func (t *Translator) In(locale, messageID string, templateData ...map[string]any) string {
	return t.localize(locale, &goi18n.LocalizeConfig{MessageID: messageID, TemplateData: first(templateData)})
}

func (t *Translator) localize(locale string, cfg *goi18n.LocalizeConfig) string {
	l := goi18n.NewLocalizer(t.bundle, locale, t.defaultLocale)
	msg, err := l.Localize(cfg)
	if err != nil {
		return cfg.MessageID
	}
	return msg
}

func first(data []map[string]any) map[string]any {
	if len(data) > 0 {
		return data[0]
	}
	return nil
}
