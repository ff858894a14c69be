package client

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// apiContentType versions the server API contract.
const apiContentType = "application/vnd.fwpack-server-v1+json"

// signatureScheme prefixes the Authorization header.
const signatureScheme = "FWPACK-V1"

// Request is an HTTP request prepared for signing. Headers set after
// Sign are not covered by the signature.
type Request struct {
	// Method is the HTTP verb.
	Method string
	// URL is the parsed target.
	URL *url.URL
	// Payload is the request body.
	Payload []byte
	// Headers are the signed request headers.
	Headers map[string]string
}

// NewRequest prepares a request with the headers every server call
// carries: host, timestamp, payload checksum and the API version.
func NewRequest(method, rawURL string, payload []byte) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}

	return &Request{
		Method:  method,
		URL:     u,
		Payload: payload,
		Headers: map[string]string{
			"Host":             u.Host,
			"Timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
			"Content-sha256":   sha256Hex(payload),
			"Api-Content-Type": apiContentType,
			"Accept":           "application/json",
		},
	}, nil
}

// SetHeader adds a header to be covered by the signature.
func (r *Request) SetHeader(name, value string) {
	r.Headers[name] = value
}

// Canonical renders the request deterministically for signing: verb,
// path, sorted percent-encoded query, sorted lowercased headers, a
// blank line, and the payload checksum.
func (r *Request) Canonical() string {
	return strings.Join([]string{
		r.Method,
		canonicalPath(r.URL),
		canonicalQuery(r.URL),
		canonicalHeaders(r.Headers),
		"",
		sha256Hex(r.Payload),
	}, "\n")
}

// Sign computes the request signature and installs the Authorization
// header.
func (r *Request) Sign(accessID, accessSecret string) {
	mac := hmac.New(sha256.New, []byte(accessSecret))
	mac.Write([]byte(sha256Hex([]byte(r.Canonical()))))

	signature := hex.EncodeToString(mac.Sum(nil))

	r.Headers["Authorization"] = fmt.Sprintf(
		"%s Credential=%s, Signature=%s", signatureScheme, accessID, signature)
}

func canonicalPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}

	return u.Path
}

// canonicalQuery renders key=value pairs percent-encoded and sorted by
// their encoded form, so repeated keys order deterministically too.
func canonicalQuery(u *url.URL) string {
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return ""
	}

	pairs := make([]string, 0, len(values))
	for key, list := range values {
		for _, value := range list {
			pairs = append(pairs, percentEncode(key)+"="+percentEncode(value))
		}
	}

	sort.Strings(pairs)

	return strings.Join(pairs, "&")
}

// canonicalHeaders renders name:value lines lowercased and sorted.
func canonicalHeaders(headers map[string]string) string {
	lines := make([]string, 0, len(headers))
	for name, value := range headers {
		lines = append(lines, strings.ToLower(name)+":"+strings.TrimSpace(value))
	}

	sort.Strings(lines)

	return strings.Join(lines, "\n")
}

// percentEncode applies strict RFC 3986 encoding: everything outside
// the unreserved set becomes %XX. url.QueryEscape is unsuitable here
// since it maps spaces to '+'.
func percentEncode(s string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder

	for i := range len(s) {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}

	return b.String()
}

func sha256Hex(payload []byte) string {
	digest := sha256.Sum256(payload)

	return hex.EncodeToString(digest[:])
}
