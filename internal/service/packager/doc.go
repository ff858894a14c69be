// Package packager manages the local package template: binding it to a
// product, adding and removing update objects, and rendering the
// listing users inspect before pushing.
package packager
