// Package client talks to the update server. Every request carries a
// timestamp, the payload checksum and an HMAC signature computed over
// a canonical rendering of the request, so the server can verify both
// the caller identity and the request integrity.
package client
