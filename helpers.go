package edgedupe

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	metaTagRe  = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	metaAttrRe = regexp.MustCompile(`(?is)([a-z:_-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// previewKeys are the meta properties naming a page's preview image, best first.
var previewKeys = []string{
	"og:image:secure_url",
	"og:image:url",
	"og:image",
	"twitter:image",
	"twitter:image:src",
}

// ExtractOGImageURL returns the preview image of a landing page: the
// og:image family first, then twitter:image. Relative URLs are resolved
// against pageURL. Returns "" when the page names no usable http(s) image.
func ExtractOGImageURL(pageHTML, pageURL string) string {
	found := make(map[string]string)
	for _, tag := range metaTagRe.FindAllString(pageHTML, -1) {
		attrs := metaAttrs(tag)
		key := attrs["property"]
		if key == "" {
			key = attrs["name"]
		}
		key = strings.ToLower(key)
		if _, ok := found[key]; ok {
			continue
		}
		if v := strings.TrimSpace(html.UnescapeString(attrs["content"])); v != "" {
			found[key] = v
		}
	}

	for _, key := range previewKeys {
		if u := resolveURL(pageURL, found[key]); u != "" {
			return u
		}
	}
	return ""
}

// metaAttrs parses the quoted attributes of one meta tag, lowercasing names.
func metaAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range metaAttrRe.FindAllStringSubmatch(tag, -1) {
		attrs[strings.ToLower(m[1])] = m[2] + m[3]
	}
	return attrs
}

func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			return ""
		}
		u = b.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
