package parser

import (
	"bytes"
	"context"
	"errors"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/recovery"
)

var (
	ErrNotPDF    = errors.New("not a PDF file")
	ErrEncrypted = errors.New("encrypted documents are not supported")
	ErrNoCatalog = errors.New("document catalog not found")
)

// Config controls high-level PDF parsing (xref resolution + object loading).
type Config struct {
	Recovery     recovery.Strategy
	Limits       filters.Limits
	MaxXRefDepth int
	Logger       observability.Logger
}

// DocumentParser builds a raw.Document using xref tables/streams and the object loader.
type DocumentParser struct {
	cfg      Config
	pipeline *filters.Pipeline
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.NewLenientStrategy(cfg.Logger)
	}
	if cfg.MaxXRefDepth <= 0 {
		cfg.MaxXRefDepth = 64
	}
	cfg.Logger = observability.OrNop(cfg.Logger)
	return &DocumentParser{cfg: cfg, pipeline: filters.DefaultPipeline(cfg.Limits)}
}

// Pipeline returns the filter pipeline used for object and xref streams.
func (p *DocumentParser) Pipeline() *filters.Pipeline { return p.pipeline }

// Parse loads every object of the file into memory. The input is copied and
// never retained.
func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	version, ok := detectHeaderVersion(data)
	if !ok {
		return nil, ErrNotPDF
	}
	buf := append([]byte(nil), data...)

	l := &loader{
		ctx:      ctx,
		data:     buf,
		pipeline: p.pipeline,
		strategy: p.cfg.Recovery,
		log:      p.cfg.Logger,
		maxDepth: p.cfg.MaxXRefDepth,
		doc:      raw.NewDocument(),
		loading:  make(map[int]bool),
		objStms:  make(map[int]map[int]raw.Object),
	}
	l.doc.Version = version

	if err := l.run(); err != nil {
		return nil, err
	}
	doc := l.doc
	if _, ok := doc.Trailer.Get("Encrypt"); ok {
		doc.Encrypted = true
		return nil, ErrEncrypted
	}
	if _, ok := doc.Catalog(); !ok {
		return nil, ErrNoCatalog
	}
	p.cfg.Logger.Debug("parsed document",
		observability.Int(observability.MetricObjectCount, len(doc.Objects)),
		observability.String("version", doc.Version),
		observability.Bool("repaired", doc.Repaired),
	)
	return doc, nil
}

func detectHeaderVersion(data []byte) (string, bool) {
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return "", false
	}
	rest := data[idx+5:]
	end := 0
	for end < len(rest) && end < 4 && (rest[end] == '.' || (rest[end] >= '0' && rest[end] <= '9')) {
		end++
	}
	if end == 0 {
		return "1.4", true
	}
	return string(rest[:end]), true
}
