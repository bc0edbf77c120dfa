// Package paginate implements cursor extraction for the API's two
// pagination shapes. List endpoints report the next page either as a
// nested object carrying a starting_after cursor or as a fully-formed
// next URL; search endpoints always use the cursor form.
package paginate

import (
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// TokenKind discriminates the two pagination styles.
type TokenKind int

const (
	// KindCursor advances with a starting_after cursor
	KindCursor TokenKind = iota
	// KindOffset advances with a numeric page parameter
	KindOffset
)

// PageToken is the position of the next page. A nil token means the
// response was the last page.
type PageToken struct {
	Kind  TokenKind
	Value string
}

// Next inspects a response body and extracts the next page token.
//
// The pages.next field takes two forms. Newer endpoints return an object
// with a starting_after cursor. Older endpoints return the next URL as a
// string, from which either a page number or a starting_after cursor is
// pulled out of the query.
func Next(body []byte) *PageToken {
	next := gjson.GetBytes(body, "pages.next")
	if !next.Exists() {
		return nil
	}

	if next.IsObject() {
		if cursor := next.Get("starting_after"); cursor.Exists() && cursor.String() != "" {
			return &PageToken{Kind: KindCursor, Value: cursor.String()}
		}
		return nil
	}

	raw := next.String()
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	q := u.Query()
	if page := q.Get("page"); page != "" {
		return &PageToken{Kind: KindOffset, Value: page}
	}
	if cursor := q.Get("starting_after"); cursor != "" {
		return &PageToken{Kind: KindCursor, Value: cursor}
	}
	return nil
}

// Apply sets the page size and, when present, the token's parameter on a
// GET query.
func (t *PageToken) Apply(params url.Values, perPage int) {
	params.Set("per_page", strconv.Itoa(perPage))
	if t == nil {
		return
	}
	switch t.Kind {
	case KindOffset:
		params.Set("page", t.Value)
	default:
		params.Set("starting_after", t.Value)
	}
}

// Body renders the pagination block of a search POST body.
func (t *PageToken) Body(perPage int) map[string]interface{} {
	block := map[string]interface{}{
		"per_page": perPage,
	}
	if t != nil && t.Kind == KindCursor {
		block["starting_after"] = t.Value
	}
	return block
}
