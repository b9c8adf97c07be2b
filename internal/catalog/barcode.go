package catalog

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

var categoryPrefix = map[Category]string{
	CategoryGold:      "GLD",
	CategorySilver:    "SLV",
	CategoryImitation: "IMT",
}

// GenerateBarcode derives a new barcode for a product: a category prefix,
// the registration instant in seconds, and a random 3-digit suffix to keep
// two registrations within the same second distinct.
func GenerateBarcode(category Category, now time.Time) string {
	prefix, ok := categoryPrefix[category]
	if !ok {
		prefix = "PRD"
	}
	suffix, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		suffix = big.NewInt(now.UnixNano() % 1000)
	}
	return fmt.Sprintf("%s%d%03d", prefix, now.Unix(), suffix.Int64())
}
