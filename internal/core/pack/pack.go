package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fwpack/fwpack/internal/core/install"
	"github.com/fwpack/fwpack/internal/core/object"
)

var (
	// ErrInvalidPackageFile is returned when the local template cannot
	// be read or parsed.
	ErrInvalidPackageFile = errors.New("invalid package file")

	// ErrObjectNotFound is returned when an operation names an object
	// the package does not carry.
	ErrObjectNotFound = errors.New("object not present in package")

	// ErrDuplicateObject is returned when a filename is added twice.
	ErrDuplicateObject = errors.New("object already present in package")

	// ErrNoProduct is returned when a package operation needs a product
	// and none was set.
	ErrNoProduct = errors.New("no product set for package")
)

// filePermissions is the mode of the saved template.
const filePermissions = 0o600

// Package is a set of update objects bound to a product.
type Package struct {
	// product is the product UID objects are pushed under.
	product string
	// version is the package version, set right before a push.
	version string
	// objects are the payloads in insertion order.
	objects []*object.Object
}

// template is the on-disk JSON shape of a package.
type template struct {
	Product string           `json:"product"`
	Version string           `json:"version,omitempty"`
	Objects []map[string]any `json:"objects,omitempty"`
}

// New creates an empty package for a product. An empty product is
// valid; pushes will demand one.
func New(product string) *Package {
	return &Package{product: product}
}

// Load reads a package template from path, normalizing objects written
// by older releases.
func Load(path string) (*Package, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackageFile, err)
	}

	var doc template
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackageFile, err)
	}

	pkg := &Package{product: doc.Product, version: doc.Version}

	for _, options := range doc.Objects {
		normalized, err := install.NormalizeLegacy(options)
		if err != nil {
			return nil, err
		}

		obj, err := object.NewObject(normalized)
		if err != nil {
			return nil, err
		}

		if err := pkg.AddObject(obj); err != nil {
			return nil, err
		}
	}

	return pkg, nil
}

// Save writes the package template to path.
func (p *Package) Save(path string) error {
	content, err := json.MarshalIndent(p.Template(), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, filePermissions); err != nil {
		return fmt.Errorf("write package file: %w", err)
	}

	return nil
}

// Product returns the product UID.
func (p *Package) Product() string {
	return p.product
}

// SetProduct binds the package to a product UID.
func (p *Package) SetProduct(product string) {
	p.product = product
}

// Version returns the package version.
func (p *Package) Version() string {
	return p.version
}

// SetVersion records the version the package will be pushed as.
func (p *Package) SetVersion(version string) {
	p.version = version
}

// Objects returns the payloads in insertion order.
func (p *Package) Objects() []*object.Object {
	return p.objects
}

// AddObject appends a payload. Filenames are unique within a package.
func (p *Package) AddObject(obj *object.Object) error {
	for _, existing := range p.objects {
		if existing.Filename() == obj.Filename() {
			return fmt.Errorf("%w: %s", ErrDuplicateObject, obj.Filename())
		}
	}

	p.objects = append(p.objects, obj)

	return nil
}

// RemoveObject drops the payload with the given filename.
func (p *Package) RemoveObject(filename string) error {
	for i, obj := range p.objects {
		if obj.Filename() == filename {
			p.objects = append(p.objects[:i], p.objects[i+1:]...)

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrObjectNotFound, filename)
}

// Template renders the package for local persistence.
func (p *Package) Template() map[string]any {
	objects := make([]map[string]any, 0, len(p.objects))
	for _, obj := range p.objects {
		objects = append(objects, obj.ToTemplate())
	}

	doc := map[string]any{
		"product": p.product,
		"objects": objects,
	}

	if p.version != "" {
		doc["version"] = p.version
	}

	return doc
}

// Metadata renders the document pushed to the server. Payload files
// are read here; a missing file or failed version extraction aborts
// the whole document.
func (p *Package) Metadata() (map[string]any, error) {
	if p.product == "" {
		return nil, ErrNoProduct
	}

	objects := make([]map[string]any, 0, len(p.objects))

	for _, obj := range p.objects {
		metadata, err := obj.ToMetadata()
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", obj.Filename(), err)
		}

		objects = append(objects, metadata)
	}

	return map[string]any{
		"product": p.product,
		"version": p.version,
		"objects": objects,
	}, nil
}

// String renders the show listing.
func (p *Package) String() string {
	var b strings.Builder

	product := p.product
	if product == "" {
		product = "(not set)"
	}

	fmt.Fprintf(&b, "Product: %s\n", product)

	if p.version != "" {
		fmt.Fprintf(&b, "Version: %s\n", p.version)
	}

	if len(p.objects) == 0 {
		b.WriteString("Objects: none")

		return b.String()
	}

	b.WriteString("Objects:")

	for i, obj := range p.objects {
		fmt.Fprintf(&b, "\n  %d# %s", i, strings.ReplaceAll(obj.String(), "\n", "\n  "))
	}

	return b.String()
}
