package apperr

import (
	_ "embed"
	"errors"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tokengate/pkg/i18n"
	"github.com/dmitrymomot/tokengate/pkg/logger"
)

//go:embed messages.yml
var defaultMessages []byte

// genericCode is the fallback entry every table must define.
const genericCode = "generic"

// Codes for taxonomy members that are not provider errors but still need
// user-facing text.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeTimeout         = "timeout"
	CodeConfig          = "config"
)

// Table maps machine-readable error codes to per-language user-facing
// messages. Unmapped codes fall back to the generic message and are logged
// so new provider codes surface in monitoring instead of silently showing
// raw errors to users.
type Table struct {
	messages map[string]i18n.Text
	log      *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithTableLogger sets the logger used to report unmapped codes.
func WithTableLogger(log *slog.Logger) TableOption {
	return func(t *Table) {
		if log != nil {
			t.log = log
		}
	}
}

type tableFile struct {
	Messages map[string]map[string]string `yaml:"messages"`
}

// NewTable parses a YAML message table.
//
// Expected shape:
//
//	messages:
//	  permission-denied:
//	    en: "You do not have access to this resource."
//	    de: "Sie haben keinen Zugriff auf diese Ressource."
//	  generic:
//	    en: "Something went wrong. Please try again."
func NewTable(raw []byte, opts ...TableOption) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrInvalidMessageTable, err)
	}

	if _, ok := file.Messages[genericCode]; !ok {
		return nil, ErrMissingGenericMessage
	}

	messages := make(map[string]i18n.Text, len(file.Messages))
	for code, variants := range file.Messages {
		messages[code] = i18n.Text(variants)
	}

	t := &Table{
		messages: messages,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// DefaultTable returns the table embedded in the binary.
// Panics on a malformed embedded file to fail fast at startup.
func DefaultTable(opts ...TableOption) *Table {
	t, err := NewTable(defaultMessages, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve returns the localized message for a code, falling back to the
// generic entry for codes the table does not know.
func (t *Table) Resolve(code, lang string) string {
	if msg, ok := t.messages[code]; ok {
		return msg.Resolve(lang)
	}

	t.log.Warn("unmapped error code, using generic message",
		slog.String("code", code),
	)
	return t.messages[genericCode].Resolve(lang)
}

// Localize converts any error from this module into user-facing text.
// Validation messages pass through as-is since they are already written for
// the user; everything else goes through the code table.
func (t *Table) Localize(err error, lang string) string {
	if err == nil {
		return ""
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return t.Resolve(CodeUnauthenticated, lang)
	case errors.Is(err, ErrTimeout):
		return t.Resolve(CodeTimeout, lang)
	}

	var ce ConfigError
	if errors.As(err, &ce) {
		return t.Resolve(CodeConfig, lang)
	}

	var re RemoteError
	if errors.As(err, &re) {
		return t.Resolve(re.Code, lang)
	}

	t.log.Warn("unclassified error surfaced to user", logger.Error(err))
	return t.messages[genericCode].Resolve(lang)
}
