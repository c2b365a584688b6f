package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	keyNameKey contextKey = "key_name"
	scopesKey  contextKey = "api_key_scopes"
	keySlotKey contextKey = "key_slot"
)

// keySlot lets the auth middleware report the authenticated key name back
// to the request logger, which wraps it from the outside.
type keySlot struct {
	name string
}

func setKeyName(ctx context.Context, name string) context.Context {
	if slot, ok := ctx.Value(keySlotKey).(*keySlot); ok {
		slot.name = name
	}
	return context.WithValue(ctx, keyNameKey, name)
}

// GetKeyName returns the name of the API key that authenticated the request.
func GetKeyName(r *http.Request) (string, bool) {
	name, ok := r.Context().Value(keyNameKey).(string)
	return name, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, scopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(scopesKey).([]string)
	return scopes
}
