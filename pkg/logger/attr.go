package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// CheckoutID records the checkout intent document id under the key "checkout_id".
func CheckoutID(id string) slog.Attr {
	return slog.String("checkout_id", id)
}

// PlanPriceRef records the selected plan price reference under the key "price_ref".
func PlanPriceRef(ref string) slog.Attr {
	return slog.String("price_ref", ref)
}

// Collection records a document store collection name under the key "collection".
func Collection(name string) slog.Attr {
	return slog.String("collection", name)
}

// State records a broker state name under the key "state".
func State(state any) slog.Attr {
	if state == nil {
		return slog.Attr{}
	}
	return slog.Any("state", state)
}

// View records an effective view name under the key "view".
func View(view any) slog.Attr {
	if view == nil {
		return slog.Attr{}
	}
	return slog.Any("view", view)
}
