package util

import (
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// maxDecodeRounds bounds repeated percent-decoding of a path.
const maxDecodeRounds = 3

var caseFolder = cases.Fold()

// NormalizeHost strips the port from a Host header value, lowercases it and
// drops a trailing dot. IPv6 literals lose their brackets.
func NormalizeHost(hostport string) string {
	host := strings.TrimSpace(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

// FoldPath returns the form of a request path used for keyword matching.
// The raw (escaped) path is percent-decoded until stable, so double-encoded
// segments such as %2554 cannot hide a keyword. The result is NFKC
// normalised and case folded, which maps fullwidth and ligature forms onto
// their ASCII equivalents.
func FoldPath(rawPath string) string {
	p := rawPath
	for i := 0; i < maxDecodeRounds; i++ {
		decoded, err := url.PathUnescape(p)
		if err != nil || decoded == p {
			break
		}
		p = decoded
	}
	p = norm.NFKC.String(p)
	p = caseFolder.String(p)
	return strings.ToLower(p)
}

// CleanPath returns the canonical form of a request path used for route
// classification: case folded, rooted, without dot segments, repeated
// slashes or a trailing slash.
func CleanPath(p string) string {
	p = FoldPath(p)
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
