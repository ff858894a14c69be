package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format identifies a supported compression container.
type Format string

// Supported formats. FormatNone marks plain payloads.
const (
	FormatNone Format = ""
	FormatGzip Format = "gzip"
	FormatXZ   Format = "xz"
)

var (
	// ErrUnknownFormat is returned when a size is requested for a
	// payload that is not a supported compressed container.
	ErrUnknownFormat = errors.New("unknown compression format")

	// ErrTruncated is returned when container framing is shorter than
	// the format requires.
	ErrTruncated = errors.New("truncated compressed file")
)

var (
	// gzipMagic starts every gzip member.
	gzipMagic = []byte{0x1f, 0x8b}

	// xzMagic starts every xz stream.
	xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

	// xzFooterMagic terminates every xz stream.
	xzFooterMagic = []byte{'Y', 'Z'}
)

// xzFooterLength is the fixed size of the xz stream footer.
const xzFooterLength = 12

// Detect sniffs the container format from the stream head.
func Detect(r io.ReadSeeker) (Format, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatNone, err
	}

	head := make([]byte, len(xzMagic))

	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return FormatNone, err
	}

	head = head[:n]

	switch {
	case bytes.HasPrefix(head, xzMagic):
		return FormatXZ, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzip, nil
	default:
		return FormatNone, nil
	}
}

// DetectFile sniffs the container format of the file at path.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, err
	}
	defer func() {
		_ = f.Close()
	}()

	return Detect(f)
}

// UncompressedSize returns the size the payload expands to. It fails
// with ErrUnknownFormat for plain or unsupported payloads.
func UncompressedSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	format, err := Detect(f)
	if err != nil {
		return 0, err
	}

	switch format {
	case FormatGzip:
		return gzipUncompressedSize(f)
	case FormatXZ:
		return xzUncompressedSize(f)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// gzipUncompressedSize reads the ISIZE trailer: the uncompressed length
// modulo 2^32 stored in the last four bytes.
func gzipUncompressedSize(f *os.File) (int64, error) {
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if end < 4 {
		return 0, ErrTruncated
	}

	trailer := make([]byte, 4)
	if _, err := f.ReadAt(trailer, end-4); err != nil {
		return 0, err
	}

	return int64(binary.LittleEndian.Uint32(trailer)), nil
}

// xzUncompressedSize locates the stream index through the footer and
// sums the uncompressed sizes of its records.
func xzUncompressedSize(f *os.File) (int64, error) {
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if end < xzFooterLength {
		return 0, ErrTruncated
	}

	// Footer: CRC32, backward size, stream flags, "YZ".
	footer := make([]byte, xzFooterLength)
	if _, err := f.ReadAt(footer, end-xzFooterLength); err != nil {
		return 0, err
	}

	if !bytes.Equal(footer[10:12], xzFooterMagic) {
		return 0, fmt.Errorf("%w: bad xz footer", ErrUnknownFormat)
	}

	indexLength := (int64(binary.LittleEndian.Uint32(footer[4:8])) + 1) * 4
	indexStart := end - xzFooterLength - indexLength

	if indexStart < 0 {
		return 0, ErrTruncated
	}

	index := make([]byte, indexLength)
	if _, err := f.ReadAt(index, indexStart); err != nil {
		return 0, err
	}

	// Index: 0x00 indicator, record count, then per record the
	// unpadded size and the uncompressed size, all as xz varints.
	if index[0] != 0x00 {
		return 0, fmt.Errorf("%w: bad xz index indicator", ErrUnknownFormat)
	}

	index = index[1:]

	count, index, err := xzVarint(index)
	if err != nil {
		return 0, err
	}

	var total int64

	for range count {
		if _, index, err = xzVarint(index); err != nil {
			return 0, err
		}

		var size int64
		if size, index, err = xzVarint(index); err != nil {
			return 0, err
		}

		total += size
	}

	return total, nil
}

// xzVarint decodes one xz multibyte integer from the head of buf.
func xzVarint(buf []byte) (int64, []byte, error) {
	var (
		value int64
		shift uint
	)

	for i, b := range buf {
		value |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, buf[i+1:], nil
		}

		shift += 7
		if shift >= 63 {
			return 0, nil, fmt.Errorf("%w: xz varint overflow", ErrUnknownFormat)
		}
	}

	return 0, nil, ErrTruncated
}
