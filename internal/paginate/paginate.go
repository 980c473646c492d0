// Package paginate decides whether a listing page has a successor and builds
// its URL.
package paginate

import (
	"net/url"
	"strconv"
)

// PageParam is the query parameter carrying the page number
const PageParam = "page"

// ClampTotal returns the effective page count: an unknown total (<= 0)
// becomes maxPages and larger totals are capped to it.
func ClampTotal(totalPages, maxPages int) int {
	if totalPages <= 0 || totalPages > maxPages {
		return maxPages
	}
	return totalPages
}

// Next returns the URL of the page after currentPage, or false when the
// current page is the last one to fetch or currentURL is not an absolute URL.
// The caller checks the quota before asking.
func Next(currentURL string, currentPage, totalPages, maxPages int) (string, bool) {
	if currentPage >= ClampTotal(totalPages, maxPages) {
		return "", false
	}

	u, err := url.Parse(currentURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	q := u.Query()
	q.Set(PageParam, strconv.Itoa(currentPage+1))
	u.RawQuery = q.Encode()
	return u.String(), true
}

// PageOf reads the page number from a URL's query, defaulting to 1
func PageOf(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1
	}
	n, err := strconv.Atoi(u.Query().Get(PageParam))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
