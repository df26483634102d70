package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultSiteRoot is the listing site prefix used to absolutize relative
// hrefs found on listing pages.
const DefaultSiteRoot = "https://www.indeed.com"

// BuildSearchURL renders the listing-page URL for a search triple. The site
// encodes spaces in the term and city as '+' and joins city and state with
// an encoded comma.
func BuildSearchURL(siteRoot string, q Query) string {
	if siteRoot == "" {
		siteRoot = DefaultSiteRoot
	}
	term := strings.ReplaceAll(strings.TrimSpace(q.Term), " ", "+")
	city := strings.ReplaceAll(strings.TrimSpace(q.City), " ", "+")
	return fmt.Sprintf("%s/jobs?q=%s&l=%s%%2C+%s", strings.TrimRight(siteRoot, "/"), term, city, q.State)
}

// ResolveHref absolutizes a listing-row href. Hrefs on the listing page are
// frequently path-relative redirector links; those get the site root
// prefixed. Already-absolute URLs pass through untouched.
func ResolveHref(siteRoot, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	if u.IsAbs() {
		return href, nil
	}
	if siteRoot == "" {
		siteRoot = DefaultSiteRoot
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimRight(siteRoot, "/") + href, nil
}
