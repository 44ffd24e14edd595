// Package i18n loads the embedded locale files into an x/text message catalog.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator resolves dotted message keys for one locale.
type Translator struct {
	printer *message.Printer
	tag     language.Tag
	known   map[string]struct{}
}

// New builds a translator for locale. Unknown or malformed locales fall back to English.
func New(locale string, logger *zap.Logger) (*Translator, error) {
	return load(localeFS, locale, logger)
}

// load reads every locales/<tag>.yaml file of fsys into a catalog.
// Messages are plain text: a literal % is escaped before registration.
func load(fsys fs.FS, locale string, logger *zap.Logger) (*Translator, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	known := make(map[string]struct{})

	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}

	var tags []language.Tag
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("invalid locale file %s: %w", e.Name(), err)
		}

		raw, err := fs.ReadFile(fsys, path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", name, err)
		}
		messages, err := Flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", name, err)
		}
		for key, msg := range messages {
			if err := builder.SetString(tag, key, strings.ReplaceAll(msg, "%", "%%")); err != nil {
				return nil, fmt.Errorf("failed to register %s/%s: %w", name, key, err)
			}
			known[key] = struct{}{}
		}
		tags = append(tags, tag)
	}

	requested, err := language.Parse(locale)
	if err != nil {
		logger.Warn("Invalid locale, defaulting to English", zap.String("locale", locale), zap.Error(err))
		requested = language.English
	}
	supported := append([]language.Tag{language.English}, tags...)
	_, idx, _ := language.NewMatcher(supported).Match(requested)
	tag := supported[idx]

	logger.Info("Translator initialized", zap.String("requested", locale), zap.String("resolved", tag.String()))
	return &Translator{
		printer: message.NewPrinter(tag, message.Catalog(builder)),
		tag:     tag,
		known:   known,
	}, nil
}

// T returns the message for key, or key itself when no locale defines it.
func (t *Translator) T(key string) string {
	if _, ok := t.known[key]; !ok {
		return key
	}
	return t.printer.Sprintf(key)
}

// Language returns the resolved locale.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Flatten turns a nested YAML document into dotted keys.
func Flatten(raw []byte) (map[string]string, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := flatten("", doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) error {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		switch v := node[k].(type) {
		case string:
			out[full] = v
		case map[string]interface{}:
			if err := flatten(full, v, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("key %s: unsupported value type %T", full, v)
		}
	}
	return nil
}
