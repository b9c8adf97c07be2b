// Package rates resolves the per-gram metal rate applied to a cart line.
package rates

import "github.com/noah-isme/backend-aurum/internal/catalog"

// Quote carries the day's metal rates in paise per gram. It is threaded
// explicitly into pricing calls rather than held as process-global state.
type Quote struct {
	GoldPerGram   int64 `json:"goldPerGram"`
	SilverPerGram int64 `json:"silverPerGram"`
}

// Resolve returns the per-gram rate for the given category. Categories that
// are not priced by weight resolve to 0; their price comes from the selling
// price instead.
func Resolve(category catalog.Category, q Quote) int64 {
	switch category {
	case catalog.CategoryGold:
		return q.GoldPerGram
	case catalog.CategorySilver:
		return q.SilverPerGram
	default:
		return 0
	}
}
