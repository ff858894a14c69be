package pusher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/fwpack/fwpack/internal/client"
	"github.com/fwpack/fwpack/internal/config"
	"github.com/fwpack/fwpack/internal/core/pack"
	"github.com/fwpack/fwpack/internal/logger"
)

// Options contains inputs for the push entry point.
type Options struct {
	// ConfigPath is an optional settings file location.
	ConfigPath string
	// PackagePath is the package template location. Empty means the
	// default filename in the working directory.
	PackagePath string
	// Version is the version string the package is published as.
	Version string
}

// ErrNoVersion is returned when neither the command line nor the
// template carries a package version.
var ErrNoVersion = errors.New("package version is required for push")

// pusher drives one push against the server.
type pusher struct {
	// cfg holds credentials and the transfer chunk size.
	cfg *config.Config
	// client issues the signed requests.
	client *client.Client
	// pkg is the package being published.
	pkg *pack.Package
}

// startResponse is the server answer to a package registration.
type startResponse struct {
	// UID identifies the registered package on the server.
	UID string `json:"uid"`
	// Uploads lists where each object must be sent.
	Uploads []uploadTask `json:"uploads"`
}

// uploadTask binds one object filename to its upload address.
type uploadTask struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Run executes the push workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "pusher")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	packagePath := opts.PackagePath
	if packagePath == "" {
		packagePath = config.DefaultPackageFilename
	}

	pkg, err := pack.Load(packagePath)
	if err != nil {
		return err
	}

	if opts.Version != "" {
		pkg.SetVersion(opts.Version)
	}

	if pkg.Version() == "" {
		return ErrNoVersion
	}

	p := &pusher{cfg: cfg, client: client.New(cfg), pkg: pkg}

	if err = p.run(ctx); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	logger.Info(ctx, "Push completed successfully")

	return nil
}

// run registers the package, uploads every object and finishes the
// push.
func (p *pusher) run(ctx context.Context) error {
	metadata, err := p.pkg.Metadata()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Registering package",
		"product", p.pkg.Product(), "version", p.pkg.Version())

	var start startResponse

	path := fmt.Sprintf("/products/%s/packages", url.PathEscape(p.pkg.Product()))
	if err = p.client.PostJSON(ctx, path, metadata, http.StatusCreated, &start); err != nil {
		return err
	}

	for _, task := range start.Uploads {
		if err = p.uploadObject(ctx, task); err != nil {
			return fmt.Errorf("upload %s: %w", task.Filename, err)
		}
	}

	finishPath := fmt.Sprintf("/packages/%s/finish", url.PathEscape(start.UID))
	if err = p.client.PostJSON(ctx, finishPath, nil, http.StatusNoContent, nil); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package published", "uid", start.UID)

	return nil
}

// uploadObject streams one payload file in numbered chunks.
func (p *pusher) uploadObject(ctx context.Context, task uploadTask) error {
	f, err := os.Open(task.Filename)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	logger.InfoKV(ctx, "Uploading object",
		"filename", task.Filename, "chunk_size", p.cfg.ChunkSize)

	buf := make([]byte, p.cfg.ChunkSize)

	for part := 0; ; part++ {
		n, err := io.ReadFull(f, buf)
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}

		chunkURL, err := chunkURL(task.URL, part)
		if err != nil {
			return err
		}

		if err = p.client.Post(ctx, chunkURL, buf[:n], http.StatusCreated); err != nil {
			return err
		}

		if n < len(buf) {
			return nil
		}
	}
}

// chunkURL appends the part number to the upload address, preserving
// any query the server already put there.
func chunkURL(rawURL string, part int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}

	query := u.Query()
	query.Set("part", strconv.Itoa(part))
	u.RawQuery = query.Encode()

	return u.String(), nil
}
