package docstore

import (
	"crypto/md5" // #nosec G501 -- content addressing, not security
	"fmt"
	"net/url"
)

// DocumentID derives a stable identifier from a URL. The URL is canonicalized
// to scheme://host/path first, so query strings and fragments never produce
// distinct documents for the same page.
func DocumentID(rawURL string) string {
	canonical := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		canonical = fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path)
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(canonical))) // #nosec G401
}

// ContentID derives an identifier for ad hoc content that has no URL, from
// the title plus the first 1000 bytes of the content.
func ContentID(title, content string) string {
	sample := content
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(title+sample))) // #nosec G401
}
