package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"wheelhub-backend/internal/domain"
)

// cursorKey is what a cursor token carries: the sort field, the last record's
// value for it, and the record id for ties.
type cursorKey struct {
	Field string     `json:"f"`
	ID    string     `json:"id"`
	Time  *time.Time `json:"t,omitempty"`
	Num   *float64   `json:"n,omitempty"`
}

func encodeCursor(order domain.OrderBy, l domain.Listing) domain.Cursor {
	k := cursorKey{Field: order.Field, ID: l.ID}
	switch order.Field {
	case domain.FieldRegularPrice:
		n := 0.0
		if l.Pricing != nil {
			n = l.Pricing.Regular()
		}
		k.Num = &n
	default:
		t := l.CreatedAt.UTC()
		k.Time = &t
	}
	b, _ := json.Marshal(k)
	return domain.Cursor(base64.RawURLEncoding.EncodeToString(b))
}

// decodeCursor rejects tokens that were minted for a different sort.
func decodeCursor(c domain.Cursor, order domain.OrderBy) (*cursorKey, error) {
	b, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}
	var k cursorKey
	if err := json.Unmarshal(b, &k); err != nil || k.ID == "" || k.Field != order.Field {
		return nil, domain.ErrInvalidCursor
	}
	if k.Field == domain.FieldRegularPrice && k.Num == nil {
		return nil, domain.ErrInvalidCursor
	}
	if k.Field != domain.FieldRegularPrice && k.Time == nil {
		return nil, domain.ErrInvalidCursor
	}
	return &k, nil
}

func (k *cursorKey) value() interface{} {
	if k.Num != nil {
		return *k.Num
	}
	return *k.Time
}

func nextCursor(order domain.OrderBy, items []domain.Listing) domain.Cursor {
	if len(items) == 0 {
		return ""
	}
	return encodeCursor(order, items[len(items)-1])
}
