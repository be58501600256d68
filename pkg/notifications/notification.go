package notifications

import (
	"time"

	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/i18n"
)

// Collection is the server-owned notification collection. The client only
// ever reads it.
const Collection = "system_notifications"

// Type represents the notification type/severity.
type Type string

const (
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeAlert   Type = "alert"
)

// Record is one server-maintained notification. CreatedAt may be absent:
// the server stamps it asynchronously, so a freshly written record can show
// up without a timestamp.
type Record struct {
	ID        string
	IsActive  bool
	Type      Type
	Title     i18n.Text
	Message   i18n.Text
	CreatedAt *time.Time
}

// CreatedOrZero returns the creation time, with absent timestamps mapped to
// epoch zero so they order as oldest under the descending sort.
func (r Record) CreatedOrZero() time.Time {
	if r.CreatedAt == nil {
		return time.Time{}
	}
	return *r.CreatedAt
}

// Decode converts a raw document into a Record. Unknown type strings
// degrade to info rather than dropping the record.
func Decode(doc docstore.Document) (Record, error) {
	rec := Record{
		ID:      doc.ID,
		Type:    TypeInfo,
		Title:   decodeText(doc, "title"),
		Message: decodeText(doc, "message"),
	}

	if active, ok := doc.Bool("isActive"); ok {
		rec.IsActive = active
	}

	if t, ok := doc.String("type"); ok {
		switch Type(t) {
		case TypeInfo, TypeSuccess, TypeWarning, TypeAlert:
			rec.Type = Type(t)
		}
	}

	if ts, ok := doc.Time("createdAt"); ok {
		rec.CreatedAt = &ts
	}

	return rec, nil
}

func decodeText(doc docstore.Document, field string) i18n.Text {
	raw, ok := doc.Lookup(field)
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		// A plain string is treated as the default-language variant.
		if s, ok := raw.(string); ok {
			return i18n.Text{i18n.DefaultLanguage: s}
		}
		return nil
	}
	text := make(i18n.Text, len(m))
	for lang, v := range m {
		if s, ok := v.(string); ok {
			text[lang] = s
		}
	}
	return text
}
