package install

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrVersionNotFound is returned when no known image family matches the
// stream or the matched family carries no usable version string.
var ErrVersionNotFound = errors.New("version not found")

const (
	// uImage header: 4-byte magic at offset 0, image name field at 32..64.
	uImageNameOffset = 32
	uImageNameLength = 32

	// ARM zImage header: magic word at offset 0x24.
	zImageMagicOffset = 36

	// x86 boot sector: 0x55AA signature at offset 510, boot-protocol
	// loadflags byte at 0x211 (bit 0 set means the kernel loads high,
	// i.e. bzImage), kernel_version pointer at 0x20E relative to 0x200.
	x86SignatureOffset     = 510
	x86LoadFlagsOffset     = 0x211
	x86VersionPtrOffset    = 0x20E
	x86VersionBias         = 0x200
	x86VersionWindowLength = 256

	// zImageScanWindow bounds the banner search in ARM zImages.
	zImageScanWindow = 32 * 1024

	// ubootScanWindow bounds the banner search in U-Boot binaries.
	ubootScanWindow = 1 << 20
)

var (
	// uImageMagic is the big-endian uImage magic 0x27051956.
	uImageMagic = []byte{0x27, 0x05, 0x19, 0x56}

	// zImageMagic is the ARM boot magic 0x016f2818 as stored on disk
	// (little endian).
	zImageMagic = []byte{0x18, 0x28, 0x6f, 0x01}

	// x86Signature is the boot sector signature.
	x86Signature = []byte{0x55, 0xAA}

	// linuxBanner matches the "Linux-<version>" marker embedded in
	// kernel images.
	linuxBanner = regexp.MustCompile(`Linux-([0-9][\w.+-]*)`)

	// ubootBanner matches "U-Boot <version> (<build date>)" and the SPL
	// variant; the version is the token before the parenthesized date.
	ubootBanner = regexp.MustCompile(`U-Boot(?: SPL)? ([^\s(]+) \(`)
)

// kernelFamily couples a magic matcher with its version extractor.
// Families are probed in a fixed order; the first match wins.
type kernelFamily struct {
	name    string
	match   func(io.ReadSeeker) bool
	version func(io.ReadSeeker) (string, error)
}

//nolint:gochecknoglobals // Static detection table, never mutated.
var kernelFamilies = []kernelFamily{
	{"arm-uImage", isARMUImage, armUImageVersion},
	{"arm-zImage", isARMZImage, armZImageVersion},
	{"x86-bzImage", isX86BzImage, x86Version},
	{"x86-zImage", isX86ZImage, x86Version},
}

// LinuxKernelVersion detects the kernel image family of the stream and
// extracts its version string.
func LinuxKernelVersion(r io.ReadSeeker) (string, error) {
	for _, family := range kernelFamilies {
		if !family.match(r) {
			continue
		}

		version, err := family.version(r)
		if err != nil {
			return "", fmt.Errorf("%s: %w", family.name, err)
		}

		return version, nil
	}

	return "", fmt.Errorf("%w: not a known Linux kernel image", ErrVersionNotFound)
}

// UBootVersion extracts the version token from a U-Boot (or U-Boot SPL)
// banner within the first megabyte of the stream.
func UBootVersion(r io.ReadSeeker) (string, error) {
	window, err := readWindow(r, 0, ubootScanWindow)
	if err != nil {
		return "", err
	}

	match := ubootBanner.FindSubmatch(window)
	if match == nil {
		return "", fmt.Errorf("%w: no U-Boot banner", ErrVersionNotFound)
	}

	return string(match[1]), nil
}

// CustomVersion extracts a version by applying the expression to a
// window of up to bufferSize bytes starting at seek. The first match
// (lowest offset) wins.
func CustomVersion(r io.ReadSeeker, expression *regexp.Regexp, seek, bufferSize int64) (string, error) {
	window, err := readWindow(r, seek, bufferSize)
	if err != nil {
		return "", err
	}

	match := expression.Find(window)
	if match == nil {
		return "", fmt.Errorf("%w: expression %q matched nothing", ErrVersionNotFound, expression)
	}

	return string(match), nil
}

// isARMUImage reports whether the stream starts with the uImage magic.
func isARMUImage(r io.ReadSeeker) bool {
	return matchAt(r, 0, uImageMagic)
}

// isARMZImage reports whether the stream carries the ARM zImage magic.
func isARMZImage(r io.ReadSeeker) bool {
	return matchAt(r, zImageMagicOffset, zImageMagic)
}

// isX86Image reports whether the stream carries the x86 boot sector
// signature.
func isX86Image(r io.ReadSeeker) bool {
	return matchAt(r, x86SignatureOffset, x86Signature)
}

// isX86BzImage reports an x86 image whose kernel loads high.
func isX86BzImage(r io.ReadSeeker) bool {
	return isX86Image(r) && x86LoadedHigh(r)
}

// isX86ZImage reports an x86 image whose kernel loads low.
func isX86ZImage(r io.ReadSeeker) bool {
	return isX86Image(r) && !x86LoadedHigh(r)
}

// x86LoadedHigh reads the loadflags LOADED_HIGH bit.
func x86LoadedHigh(r io.ReadSeeker) bool {
	flags, err := readExactly(r, x86LoadFlagsOffset, 1)
	if err != nil {
		return false
	}

	return flags[0]&1 == 1
}

// armUImageVersion reads the uImage name field, which carries the
// "Linux-<version>" string for kernel images.
func armUImageVersion(r io.ReadSeeker) (string, error) {
	name, err := readExactly(r, uImageNameOffset, uImageNameLength)
	if err != nil {
		return "", fmt.Errorf("%w: truncated uImage header", ErrVersionNotFound)
	}

	version := strings.Trim(string(bytes.TrimRight(name, "\x00")), " ")
	version = strings.TrimPrefix(version, "Linux-")

	if version == "" {
		return "", fmt.Errorf("%w: empty uImage name field", ErrVersionNotFound)
	}

	return version, nil
}

// armZImageVersion scans the head of the image for the Linux banner.
func armZImageVersion(r io.ReadSeeker) (string, error) {
	window, err := readWindow(r, 0, zImageScanWindow)
	if err != nil {
		return "", err
	}

	match := linuxBanner.FindSubmatch(window)
	if match == nil {
		return "", fmt.Errorf("%w: no Linux banner in zImage", ErrVersionNotFound)
	}

	return string(match[1]), nil
}

// x86Version follows the boot-protocol kernel_version pointer and
// returns the token before the first space.
func x86Version(r io.ReadSeeker) (string, error) {
	ptr, err := readExactly(r, x86VersionPtrOffset, 2)
	if err != nil {
		return "", fmt.Errorf("%w: truncated x86 boot header", ErrVersionNotFound)
	}

	offset := int64(binary.LittleEndian.Uint16(ptr))
	if offset == 0 {
		return "", fmt.Errorf("%w: x86 image has no version field", ErrVersionNotFound)
	}

	window, err := readWindow(r, offset+x86VersionBias, x86VersionWindowLength)
	if err != nil {
		return "", err
	}

	version := string(window)
	if i := strings.IndexAny(version, " \x00"); i >= 0 {
		version = version[:i]
	}

	if version == "" {
		return "", fmt.Errorf("%w: empty x86 version field", ErrVersionNotFound)
	}

	return version, nil
}

// matchAt reports whether the stream carries exactly the magic bytes at
// the given offset. Short streams simply do not match.
func matchAt(r io.ReadSeeker, offset int64, magic []byte) bool {
	header, err := readExactly(r, offset, len(magic))
	if err != nil {
		return false
	}

	return bytes.Equal(header, magic)
}

// readExactly reads size bytes at offset, failing on short reads.
func readExactly(r io.ReadSeeker, offset int64, size int) ([]byte, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// readWindow reads up to size bytes at offset; size < 0 reads to EOF.
// A window shorter than requested is not an error, version markers may
// sit anywhere before it ends.
func readWindow(r io.ReadSeeker, offset, size int64) ([]byte, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	if size < 0 {
		return io.ReadAll(r)
	}

	buf := make([]byte, size)

	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	return buf[:n], nil
}
