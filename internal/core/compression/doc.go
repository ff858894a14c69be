// Package compression detects whether an update object payload is
// compressed and reports its uncompressed size, which the update agent
// needs to verify available space before installing. Sizes are read
// from the container framing (gzip trailer, xz index), never by
// decompressing the payload.
package compression
