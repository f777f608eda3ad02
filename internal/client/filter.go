package client

import (
	"strings"

	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

// FilterSites keeps the sites whose title, location, summary or tags contain
// query, ignoring case. A blank query returns all sites.
func FilterSites(sites []model.Site, query string) []model.Site {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return sites
	}
	out := make([]model.Site, 0, len(sites))
	for _, s := range sites {
		haystack := strings.ToLower(strings.Join([]string{
			s.Title, s.Location, s.Summary, strings.Join(s.Tags, " "),
		}, " "))
		if strings.Contains(haystack, query) {
			out = append(out, s)
		}
	}
	return out
}
