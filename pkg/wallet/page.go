package wallet

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const cursorDelimiter = "|"

// Cursor is the (created_at, id) position of the last row of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode renders the cursor as an opaque URL-safe token.
func (cursor Cursor) Encode() string {
	raw := strconv.FormatInt(cursor.CreatedAt.UTC().UnixNano(), 10) + cursorDelimiter + cursor.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token produced by Cursor.Encode. An empty token yields nil.
func ParseCursor(token string) (*Cursor, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidPage)
	}
	nanosPart, idPart, found := strings.Cut(string(raw), cursorDelimiter)
	if !found || idPart == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidPage)
	}
	nanos, err := strconv.ParseInt(nanosPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidPage)
	}
	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: idPart}, nil
}

// Page selects a slice of a newest-first listing.
type Page struct {
	Limit  int
	Cursor *Cursor
}

// NewPage validates a limit (0 selects DefaultPageLimit) and a cursor token.
func NewPage(limit int, cursorToken string) (Page, error) {
	if limit < 0 {
		return Page{}, fmt.Errorf("%w: limit must not be negative", ErrInvalidPage)
	}
	if limit > MaxPageLimit {
		return Page{}, fmt.Errorf("%w: limit exceeds maximum: %d > %d", ErrInvalidPage, limit, MaxPageLimit)
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	cursor, err := ParseCursor(cursorToken)
	if err != nil {
		return Page{}, err
	}
	return Page{Limit: limit, Cursor: cursor}, nil
}

// normalized fills the default limit for pages built as literals.
func (page Page) normalized() Page {
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	return page
}

// Admits reports whether transaction sorts strictly after the cursor in
// newest-first order.
func (cursor Cursor) Admits(transaction Transaction) bool {
	if transaction.CreatedAt.Before(cursor.CreatedAt) {
		return true
	}
	return transaction.CreatedAt.Equal(cursor.CreatedAt) && transaction.ID < cursor.ID
}

// NewestFirst orders two transactions by created_at then id, both descending.
func NewestFirst(left Transaction, right Transaction) bool {
	if !left.CreatedAt.Equal(right.CreatedAt) {
		return left.CreatedAt.After(right.CreatedAt)
	}
	return left.ID > right.ID
}
