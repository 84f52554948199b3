package webhook

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/spacehub/rental-api/internal/domain"
)

// Metadata is intent or refund metadata with snake_case keys.
type Metadata map[string]string

// NormalizeMetadata rewrites camelCase keys such as bookingId or startDate into their snake_case
// form. When both spellings are present the snake_case value wins.
func NormalizeMetadata(raw map[string]string) Metadata {
	meta := make(Metadata, len(raw))

	for k, v := range raw {
		key := snakeCase(k)
		if _, ok := meta[key]; ok && key != k {
			continue
		}
		meta[key] = strings.TrimSpace(v)
	}

	return meta
}

func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

func (m Metadata) Int(key string) (int, bool) {
	v, ok := m[key]
	if !ok || v == "" {
		return 0, false
	}

	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}

	return n, true
}

func (m Metadata) Purpose() string {
	return m[domain.MetaPaymentPurpose]
}
