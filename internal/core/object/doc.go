// Package object models a single update payload inside a package: the
// file to ship, the installation mode with its mode-specific options,
// and the install condition deciding whether the device applies it.
// Objects render themselves into two documents: the local template
// saved between invocations and the metadata uploaded to the server.
package object
