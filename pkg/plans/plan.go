package plans

import (
	"github.com/dmitrymomot/tokengate/pkg/docstore"
	"github.com/dmitrymomot/tokengate/pkg/i18n"
)

// Collection is the store collection holding the plan catalog.
const Collection = "subscription_plans"

// StatusActive marks plans offered for purchase. Anything else is hidden
// from the client.
const StatusActive = "active"

// Plan describes a purchasable token package. All text is stored per
// language; PriceRef is the payment provider's price identifier handed to
// the checkout broker on selection.
type Plan struct {
	ID        string              `json:"id"`
	PriceRef  string              `json:"priceRef"`
	Tokens    int64               `json:"tokens"`
	Title     i18n.Text           `json:"title"`
	Price     i18n.Text           `json:"price"`
	Features  map[string][]string `json:"features"`
	IsPopular bool                `json:"isPopular"`
	Status    string              `json:"status"`
}

// FeaturesFor resolves the feature list for a language, falling back to the
// default language, then to any available variant.
func (p Plan) FeaturesFor(lang string) []string {
	if fs, ok := p.Features[lang]; ok {
		return fs
	}
	if fs, ok := p.Features[i18n.DefaultLanguage]; ok {
		return fs
	}
	for _, fs := range p.Features {
		return fs
	}
	return nil
}

// Decode converts a raw catalog document into a Plan.
func Decode(doc docstore.Document) (Plan, error) {
	p := Plan{ID: doc.ID}

	p.PriceRef, _ = doc.String("priceRef")
	p.Status, _ = doc.String("status")
	p.IsPopular, _ = doc.Bool("isPopular")

	tokens, ok := doc.Int64("tokens")
	if !ok || tokens < 0 {
		return Plan{}, ErrInvalidPlanDocument
	}
	p.Tokens = tokens

	p.Title = decodeText(doc, "title")
	p.Price = decodeText(doc, "price")
	p.Features = decodeFeatures(doc)

	return p, nil
}

func decodeText(doc docstore.Document, field string) i18n.Text {
	raw, ok := doc.Lookup(field)
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
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

func decodeFeatures(doc docstore.Document) map[string][]string {
	raw, ok := doc.Lookup("features")
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	features := make(map[string][]string, len(m))
	for lang, v := range m {
		items, ok := v.([]any)
		if !ok {
			continue
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		features[lang] = list
	}
	return features
}
