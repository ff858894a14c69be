package pusher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fwpack/fwpack/internal/client"
	"github.com/fwpack/fwpack/internal/config"
	"github.com/fwpack/fwpack/internal/core/object"
	"github.com/fwpack/fwpack/internal/core/pack"
)

// pushServer fakes the three server endpoints of a push and records
// the uploaded chunks.
type pushServer struct {
	mu       sync.Mutex
	metadata map[string]any
	chunks   map[string][]byte
	finished bool
	payload  string
	server   *httptest.Server
}

func newPushServer(t *testing.T, payload string) *pushServer {
	t.Helper()

	ps := &pushServer{chunks: map[string][]byte{}, payload: payload}
	ps.server = httptest.NewServer(http.HandlerFunc(ps.handle))
	t.Cleanup(ps.server.Close)

	return ps
}

func (ps *pushServer) handle(w http.ResponseWriter, r *http.Request) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	switch r.URL.Path {
	case "/products/1234/packages":
		_ = json.NewDecoder(r.Body).Decode(&ps.metadata)

		w.WriteHeader(http.StatusCreated)

		response := startResponse{
			UID: "42",
			Uploads: []uploadTask{
				{Filename: ps.payload, URL: ps.server.URL + "/upload/1"},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	case "/upload/1":
		body, _ := io.ReadAll(r.Body)
		ps.chunks[r.URL.Query().Get("part")] = body

		w.WriteHeader(http.StatusCreated)
	case "/packages/42/finish":
		ps.finished = true

		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// testPackage builds a one-object package around a temp payload.
func testPackage(t *testing.T, content []byte) (*pack.Package, string) {
	t.Helper()

	payload := filepath.Join(t.TempDir(), "vmlinuz")
	require.NoError(t, os.WriteFile(payload, content, 0o600))

	pkg := pack.New("1234")
	pkg.SetVersion("2.0")

	obj, err := object.NewObject(map[string]any{
		"filename": payload,
		"mode":     "raw",
		"target":   "/dev/sda",
	})
	require.NoError(t, err)
	require.NoError(t, pkg.AddObject(obj))

	return pkg, payload
}

// TestPushUploadsChunks runs a full push against the fake server and
// checks chunking, metadata and completion.
func TestPushUploadsChunks(t *testing.T) {
	t.Parallel()

	content := []byte("0123456789") // 3 chunks at size 4
	pkg, payload := testPackage(t, content)
	ps := newPushServer(t, payload)

	cfg := &config.Config{
		ServerURL:    ps.server.URL,
		AccessID:     "access-id",
		AccessSecret: "secret",
		ChunkSize:    4,
	}

	p := &pusher{cfg: cfg, client: client.New(cfg), pkg: pkg}
	require.NoError(t, p.run(context.Background()))

	require.True(t, ps.finished)
	require.Equal(t, "1234", ps.metadata["product"])
	require.Equal(t, "2.0", ps.metadata["version"])

	require.Equal(t, map[string][]byte{
		"0": []byte("0123"),
		"1": []byte("4567"),
		"2": []byte("89"),
	}, ps.chunks)
}

// TestPushChunkAlignedPayload sends no empty trailing chunk when the
// payload divides evenly.
func TestPushChunkAlignedPayload(t *testing.T) {
	t.Parallel()

	pkg, payload := testPackage(t, []byte("01234567"))
	ps := newPushServer(t, payload)

	cfg := &config.Config{
		ServerURL:    ps.server.URL,
		AccessID:     "access-id",
		AccessSecret: "secret",
		ChunkSize:    4,
	}

	p := &pusher{cfg: cfg, client: client.New(cfg), pkg: pkg}
	require.NoError(t, p.run(context.Background()))

	require.Len(t, ps.chunks, 2)
}

// TestRunRequiresVersion refuses to push an unversioned package.
func TestRunRequiresVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	packagePath := filepath.Join(dir, ".fwpack")
	require.NoError(t, pack.New("1234").Save(packagePath))

	err := Run(context.Background(), &Options{
		ConfigPath:  filepath.Join(dir, "settings.yaml"),
		PackagePath: packagePath,
	})
	require.ErrorIs(t, err, ErrNoVersion)
}

// TestChunkURLPreservesQuery keeps server-provided query parameters.
func TestChunkURLPreservesQuery(t *testing.T) {
	t.Parallel()

	u, err := chunkURL("http://localhost/upload?token=abc", 3)
	require.NoError(t, err)
	require.Equal(t, "http://localhost/upload?part=3&token=abc", u)
}
