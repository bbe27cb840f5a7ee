package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/rs/zerolog"

	"github.com/kenhendricks00/ai-companion/internal/avatar3d"
)

// Loader opens models from local paths or http(s) URLs.
type Loader struct {
	client *http.Client
	logger zerolog.Logger
}

func NewLoader(client *http.Client, logger zerolog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client: client,
		logger: logger.With().Str("component", "model-loader").Logger(),
	}
}

// Load satisfies avatar3d.ModelLoader.
func (l *Loader) Load(ctx context.Context, url string) (avatar3d.Rig, error) {
	m, err := l.LoadModel(ctx, url)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (l *Loader) LoadModel(ctx context.Context, url string) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		m   *Model
		err error
	)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		m, err = l.fetch(ctx, url)
	} else {
		m, err = LoadFile(url)
	}
	if err != nil {
		l.logger.Warn().Err(err).Str("source", url).Msg("model load failed")
		return nil, err
	}

	l.logger.Info().
		Str("source", url).
		Str("vrm", m.Version).
		Int("bones", len(m.bones)).
		Int("expressions", len(m.expressions)).
		Msg("model loaded")
	return m, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (*Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrInvalidModel, url, resp.StatusCode)
	}
	return Decode(resp.Body, url)
}

// LoadFile opens a .vrm, .glb or .gltf file.
func LoadFile(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidModel, path, err)
	}
	return fromDocument(doc, path)
}

// Decode reads a self-contained model (binary GLB or embedded glTF).
func Decode(r io.Reader, source string) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidModel, source, err)
	}
	return fromDocument(doc, source)
}
