// Package install implements install conditions for update objects: the
// rules deciding whether the update agent must actually write an object
// to the device (always, when content diverges, or when an extracted
// version string diverges).
//
// Version-based conditions rely on a binary sniffer that recognizes
// firmware image families by magic bytes (ARM uImage/zImage, x86
// bzImage/zImage boot headers, U-Boot banners) or on a user-supplied
// regular expression applied to a bounded window of the file.
package install
