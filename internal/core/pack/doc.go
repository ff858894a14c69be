// Package pack models an update package: the product it belongs to and
// the ordered objects it ships. A package persists locally as a JSON
// template between invocations and renders the metadata document the
// server receives on push. Objects from older template formats are
// normalized on load.
package pack
