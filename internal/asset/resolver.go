package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrNotFound = errors.New("resource not found")

const sniffLen = 3072

// Resource is an opened rewrite target. The caller owns Body.
type Resource struct {
	MIMEType string
	Encoding string
	Size     int64
	Body     io.ReadCloser
}

func (r *Resource) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mime_type", r.MIMEType),
		slog.String("encoding", r.Encoding),
		slog.Int64("size", r.Size),
	)
}

// Resolver turns a rewritten URI into a readable resource. A missing target
// is reported as ErrNotFound.
type Resolver interface {
	Resolve(uri string) (*Resource, error)
}

// FileResolver serves file URIs. URIs under the asset prefix are read from
// the packaged assets; other file:// URIs only when file access is allowed.
type FileResolver struct {
	assetPrefix     string
	assets          fs.FS
	allowFileAccess bool
	mimeCache       *expirable.LRU[string, string]
}

type Option func(*FileResolver)

func WithFileAccess(allow bool) Option {
	return func(r *FileResolver) {
		r.allowFileAccess = allow
	}
}

func WithMIMECache(size int, ttl time.Duration) Option {
	return func(r *FileResolver) {
		r.mimeCache = expirable.NewLRU[string, string](size, nil, ttl)
	}
}

func NewFileResolver(assetPrefix string, assets fs.FS, opts ...Option) *FileResolver {
	r := &FileResolver{
		assetPrefix: assetPrefix,
		assets:      assets,
		mimeCache:   expirable.NewLRU[string, string](300, nil, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *FileResolver) Resolve(uri string) (*Resource, error) {
	var (
		f    fs.File
		name string
		err  error
	)
	switch {
	case strings.HasPrefix(uri, r.assetPrefix):
		f, name, err = r.openAsset(strings.TrimPrefix(uri, r.assetPrefix))
	case strings.HasPrefix(uri, "file://"):
		if !r.allowFileAccess {
			slog.Debug("File access disabled", slog.String("uri", uri))
			return nil, ErrNotFound
		}
		f, name, err = openFile(uri)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrNotFound) {
			slog.Warn("Rerouting target not found", slog.String("uri", uri))
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", uri, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrNotFound
	}

	res := &Resource{Size: info.Size(), Body: f}
	if err := r.detect(res, name, f); err != nil {
		_ = f.Close()
		return nil, err
	}
	if strings.HasPrefix(res.MIMEType, "text/") {
		res.Encoding = "UTF-8"
	}
	return res, nil
}

func (r *FileResolver) openAsset(rest string) (fs.File, string, error) {
	if r.assets == nil {
		return nil, "", ErrNotFound
	}
	u, err := url.Parse(rest)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	name := path.Clean(strings.TrimPrefix(u.Path, "/"))
	if !fs.ValidPath(name) || name == "." {
		return nil, "", ErrNotFound
	}
	f, err := r.assets.Open(name)
	return f, name, err
}

func openFile(uri string) (fs.File, string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return nil, "", ErrNotFound
	}
	name := path.Clean(u.Path)
	f, err := os.Open(name)
	if err != nil {
		return nil, "", err
	}
	return f, name, nil
}

func (r *FileResolver) detect(res *Resource, name string, f fs.File) error {
	if cached, ok := r.mimeCache.Get(name); ok {
		res.MIMEType = cached
		return nil
	}

	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("read %s: %w", name, err)
		}
		head = head[:n]
		mimeType = mimetype.Detect(head).String()
		res.Body = &readCloser{Reader: io.MultiReader(bytes.NewReader(head), f), Closer: f}
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}

	r.mimeCache.Add(name, mimeType)
	res.MIMEType = mimeType
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
