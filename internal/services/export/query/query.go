// Package query builds and mutates guild message search requests
package query

import (
	"net/url"
	"strconv"
	"strings"

	"discordsearch/internal/adapters/discord"
	"discordsearch/internal/core/snowflake"
	perr "discordsearch/internal/platform/errors"
	"discordsearch/internal/platform/validate"
	"discordsearch/internal/services/export/domain"
)

// Search parameter names
const (
	ParamIncludeNSFW = "include_nsfw"
	ParamSortBy      = "sort_by"
	ParamSortOrder   = "sort_order"
	ParamContent     = "content"
	ParamChannelID   = "channel_id"
	ParamMinID       = "min_id"
	ParamMaxID       = "max_id"
	ParamOffset      = "offset"
)

// SearchQuery is a structured search request. It is serialized to a URL only
// when a request is made
type SearchQuery struct {
	endpoint string
	params   url.Values
}

// Build validates f and returns the initial query for base (scheme and host, e.g. https://discord.com)
func Build(base string, f domain.Filters) (*SearchQuery, error) {
	if err := Validate(f); err != nil {
		return nil, err
	}

	p := url.Values{}
	p.Set(ParamIncludeNSFW, "true")
	p.Set(ParamSortBy, "timestamp")
	p.Set(ParamSortOrder, "asc")
	if f.Content != nil {
		p.Set(ParamContent, *f.Content)
	}
	if f.ChannelID != nil {
		p.Set(ParamChannelID, *f.ChannelID)
	}
	if f.After != nil {
		p.Set(ParamMinID, *f.After)
	}
	if f.Before != nil {
		p.Set(ParamMaxID, *f.Before)
	}

	return &SearchQuery{
		endpoint: discord.SearchEndpoint(base, f.GuildID),
		params:   p,
	}, nil
}

// Validate checks f the way Build does, without building anything
func Validate(f domain.Filters) error {
	if strings.TrimSpace(f.GuildID) == "" {
		return perr.WithField(perr.Validationf("--guild is required"), "--guild")
	}
	return validate.Struct(f)
}

// Reanchor moves the lower bound cursor to lastID, replacing any existing one
func (q *SearchQuery) Reanchor(lastID string) error {
	if !snowflake.IsValid(lastID) {
		return perr.WithField(perr.Validationf("anchor %q is not a snowflake id", lastID), ParamMinID)
	}
	q.params.Set(ParamMinID, lastID)
	return nil
}

// WithOffset returns the request URL for page n of the current anchor window
func (q *SearchQuery) WithOffset(n int) string {
	p := cloneValues(q.params)
	p.Set(ParamOffset, strconv.Itoa(n*domain.PageSize))
	return q.endpoint + "?" + p.Encode()
}

// URL returns the request URL without an offset, used for the first page
func (q *SearchQuery) URL() string {
	return q.endpoint + "?" + q.params.Encode()
}

// Get returns the value of a parameter, or ""
func (q *SearchQuery) Get(key string) string { return q.params.Get(key) }

// Has reports whether a parameter is set
func (q *SearchQuery) Has(key string) bool { return q.params.Has(key) }

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
