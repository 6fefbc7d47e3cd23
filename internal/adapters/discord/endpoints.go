// Package discord provides a budgeted client for the Discord guild message search API
package discord

import (
	"net/url"
	"strings"
)

const apiVersion = "v9"

// SearchEndpoint returns the guild message search URL rooted at base
func SearchEndpoint(base, guildID string) string {
	base = strings.TrimRight(base, "/")
	return base + "/api/" + apiVersion + "/guilds/" + url.PathEscape(guildID) + "/messages/search"
}
