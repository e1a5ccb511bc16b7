// Package callback derives the public webhook URL the queue calls back to.
package callback

import "strings"

// BuildURL joins a public domain and a webhook path into the callback URL.
// A missing scheme defaults to https and the result always ends in a slash,
// so "example.com" + "hooks" and "https://example.com/" + "/hooks/" agree.
func BuildURL(domain, path string) string {
	domain = strings.TrimRight(domain, "/")
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	return domain + "/" + strings.Trim(path, "/") + "/"
}

// Builder recomputes the callback URL from configuration on every call.
type Builder struct {
	Domain     string
	Path       string
	ForceHTTPS bool // rewrite an explicit http:// domain to https://
}

// URL returns the callback URL for the configured domain and path.
func (b Builder) URL() string {
	u := BuildURL(b.Domain, b.Path)
	if b.ForceHTTPS && strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
