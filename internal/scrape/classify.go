package scrape

import (
	"net/url"
	"strings"
)

// Default classification rule: postings whose final URL sits under the
// listing site's company namespace are hosted by the site itself.
const (
	DefaultSiteHost      = "indeed.com"
	DefaultCompanyPrefix = "/company/"
)

// Classifier decides whether a posting is internal or external to the
// listing site. The rule is a heuristic tied to the site's URL conventions:
// if the site changes its URL scheme every posting quietly downgrades to the
// generic external extraction strategy rather than erroring.
type Classifier struct {
	host          string
	companyPrefix string
}

// NewClassifier builds a Classifier for the given site host and company path
// prefix. Zero values fall back to the Indeed defaults.
func NewClassifier(host, companyPrefix string) Classifier {
	if host == "" {
		host = DefaultSiteHost
	}
	if companyPrefix == "" {
		companyPrefix = DefaultCompanyPrefix
	}
	if !strings.HasPrefix(companyPrefix, "/") {
		companyPrefix = "/" + companyPrefix
	}
	return Classifier{host: host, companyPrefix: companyPrefix}
}

// Classify is a pure function of the final post-redirect URL. It must never
// be handed an unresolved href: redirector paths do not carry the company
// namespace signal and would silently misclassify the posting.
func (c Classifier) Classify(finalURL string) Source {
	u, err := url.Parse(finalURL)
	if err != nil {
		return SourceExternal
	}
	host := strings.ToLower(u.Hostname())
	if host != c.host && !strings.HasSuffix(host, "."+c.host) {
		return SourceExternal
	}
	if strings.HasPrefix(u.Path, c.companyPrefix) {
		return SourceInternal
	}
	return SourceExternal
}
