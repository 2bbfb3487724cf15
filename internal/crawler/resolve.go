package crawler

import (
	"errors"
	"net/url"
	"strings"

	"github.com/nao1215/sitecrawl/internal/model"
)

// ErrUnsupportedScheme is returned by Resolve for hrefs whose scheme is not
// http or https, such as mailto:, tel: or javascript:.
var ErrUnsupportedScheme = errors.New("unsupported link scheme")

// Resolve turns a raw href into an absolute URL string.
//
// Absolute hrefs (with a scheme) are returned as written. Everything else,
// including paths like "b" or "../c", is resolved against root, which is the
// scheme://host/ of the page the link was found on, not the page URL itself.
// A link "b" on http://x.test/a/ therefore points to http://x.test/b.
// Hrefs with a scheme other than http or https yield ErrUnsupportedScheme.
func Resolve(root *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return "", &model.ParseError{URL: href, Err: err}
	}
	if ref.IsAbs() {
		if !strings.EqualFold(ref.Scheme, "http") && !strings.EqualFold(ref.Scheme, "https") {
			return "", ErrUnsupportedScheme
		}
		return href, nil
	}
	return root.ResolveReference(ref).String(), nil
}
