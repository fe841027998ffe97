package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps PageSize into [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// DecodeIDCursor returns the id carried by a page token, or 0 for an empty token.
func DecodeIDCursor(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(cursor.ID, 10, 64)
}

func EncodeIDCursor(id int64) string {
	token, _ := EncodeCursor(Cursor{ID: strconv.FormatInt(id, 10)})
	return token
}

// BuildCursorPageInfo expects data fetched with limit+1 rows and returns the
// page trimmed to limit alongside its PageInfo.
func BuildCursorPageInfo[T any](data []T, limit int, extractCursor func(T) string) ([]T, PageInfo) {
	if len(data) == 0 {
		return data, PageInfo{}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	info := PageInfo{HasMore: hasMore}
	if hasMore {
		info.NextPageToken = extractCursor(data[len(data)-1])
	}
	return data, info
}
