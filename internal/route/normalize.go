package route

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Normalize returns the canonical string form of raw that rules are matched
// against. Percent-encoding of the path and fragment is rebuilt from the
// decoded form, the scheme is lowercased and the host is converted to
// lowercase ASCII. Input that does not parse is returned unchanged.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Opaque != "" {
		return u.String()
	}

	u.Scheme = strings.ToLower(u.Scheme)
	// Path and fragment are re-encoded from their decoded form. RawQuery is
	// kept as sent: "?q=%41" and "?q=A" stay distinct.
	u.RawPath = ""
	u.RawFragment = ""

	if u.Host != "" {
		host, port := u.Hostname(), u.Port()
		if ascii, err := idna.Lookup.ToASCII(host); err == nil {
			host = ascii
		}
		host = strings.ToLower(host)
		if port != "" {
			u.Host = net.JoinHostPort(host, port)
		} else if strings.Contains(host, ":") {
			u.Host = "[" + host + "]"
		} else {
			u.Host = host
		}
	}
	return u.String()
}
