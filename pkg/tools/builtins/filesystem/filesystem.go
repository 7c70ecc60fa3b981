// Package filesystem provides read-only access to a directory tree through
// the list_directory and read_file capabilities. All paths are resolved
// inside the configured root with os.Root; escaping it is an error.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rhuss/funcall/pkg/tools/registry"
)

// DefaultMaxFileBytes caps the content returned by read_file.
const DefaultMaxFileBytes = 64 << 10

var (
	listParameters = json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"Directory relative to the root (default: the root itself)"}},"required":[]}`)
	readParameters = json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"File relative to the root"}},"required":["path"]}`)
)

// Provider serves the filesystem capabilities.
type Provider struct {
	root     *os.Root
	fsys     fs.FS
	maxBytes int64
}

var _ registry.Provider = (*Provider)(nil)

// New opens dir as the root of all capability paths.
func New(dir string) (*Provider, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem: opening root: %w", err)
	}
	return &Provider{root: root, fsys: root.FS(), maxBytes: DefaultMaxFileBytes}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "filesystem" }

// Capabilities returns the list_directory and read_file descriptors.
func (p *Provider) Capabilities() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "list_directory",
			Description: "Lists the entries of a directory. Directories end with a slash.",
			Parameters:  listParameters,
			Handler:     registry.Typed(p.list),
		},
		{
			Name:        "read_file",
			Description: "Returns the text content of a file.",
			Parameters:  readParameters,
			Handler:     registry.Typed(p.read),
		},
	}
}

// Collectors returns nil.
func (p *Provider) Collectors() []prometheus.Collector { return nil }

// Close releases the root directory handle.
func (p *Provider) Close() error { return p.root.Close() }

type pathArgs struct {
	Path string `json:"path"`
}

// clean maps a model-supplied path to an fs.FS name. A leading slash
// refers to the root.
func clean(p string) (string, error) {
	name := path.Clean("/" + strings.TrimSpace(p))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", &registry.ArgumentError{Field: "path", Reason: "invalid path"}
	}
	return name, nil
}

func (p *Provider) list(_ context.Context, args pathArgs) (any, error) {
	name, err := clean(args.Path)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(p.fsys, name)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "%s/\n", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			fmt.Fprintf(&b, "%s\n", e.Name())
			continue
		}
		fmt.Fprintf(&b, "%s (%d bytes)\n", e.Name(), info.Size())
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (p *Provider) read(_ context.Context, args pathArgs) (any, error) {
	if err := registry.Required("path", args.Path); err != nil {
		return nil, err
	}
	name, err := clean(args.Path)
	if err != nil {
		return nil, err
	}

	f, err := p.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", args.Path)
	}

	data, err := io.ReadAll(io.LimitReader(f, p.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.maxBytes {
		return string(data[:p.maxBytes]) + "\n[truncated]", nil
	}
	return string(data), nil
}
