package writer

import (
	"context"
	"io"

	"github.com/wudi/pdfedit/ir/raw"
	"github.com/wudi/pdfedit/observability"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

// Config controls serialization. Compression is a zlib level; 0 leaves
// unfiltered streams as they are and -1 selects the zlib default.
type Config struct {
	Version     PDFVersion
	Compression int
	// Deterministic derives a missing /ID from the serialized body instead of
	// random bytes.
	Deterministic bool
	Logger        observability.Logger
}

// Writer serializes a raw document as a complete file with a fresh
// cross-reference table.
type Writer interface {
	Write(ctx context.Context, doc *raw.Document, out io.Writer) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

// Interceptor observes every indirect object as it is written.
type Interceptor interface {
	BeforeWrite(ctx context.Context, ref raw.ObjectRef, obj raw.Object) error
	AfterWrite(ctx context.Context, ref raw.ObjectRef, bytesWritten int64) error
}

type WriterBuilder struct {
	cfg          Config
	interceptors []Interceptor
}

func NewBuilder(cfg Config) *WriterBuilder { return &WriterBuilder{cfg: cfg} }

func (b *WriterBuilder) WithInterceptor(i Interceptor) *WriterBuilder {
	b.interceptors = append(b.interceptors, i)
	return b
}

func (b *WriterBuilder) Build() Writer {
	return &impl{cfg: b.cfg, interceptors: b.interceptors, log: observability.OrNop(b.cfg.Logger)}
}

// New returns a Writer without interceptors.
func New(cfg Config) Writer { return NewBuilder(cfg).Build() }
