package decoded

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/ir/raw"
)

var ErrNotStream = errors.New("object is not a stream")

// DecodedDocument gives filtered access to the streams of a raw document.
// Streams are decoded on first use and cached; callers always receive copies.
type DecodedDocument struct {
	Raw *raw.Document

	pipeline *filters.Pipeline
	mu       sync.Mutex
	cache    map[*raw.StreamObj][]byte
}

// Decoder transforms Raw IR into Decoded IR (applies filters).
type Decoder interface {
	Decode(ctx context.Context, rawDoc *raw.Document) (*DecodedDocument, error)
}

type decoderImpl struct {
	pipeline *filters.Pipeline
}

func NewDecoder(p *filters.Pipeline) Decoder {
	if p == nil {
		p = filters.DefaultPipeline(filters.Limits{})
	}
	return &decoderImpl{pipeline: p}
}

func (d *decoderImpl) Decode(ctx context.Context, rawDoc *raw.Document) (*DecodedDocument, error) {
	if rawDoc == nil {
		return nil, errors.New("nil document")
	}
	return &DecodedDocument{
		Raw:      rawDoc,
		pipeline: d.pipeline,
		cache:    make(map[*raw.StreamObj][]byte),
	}, nil
}

// Stream resolves o and returns its decoded payload.
func (d *DecodedDocument) Stream(ctx context.Context, o raw.Object) ([]byte, error) {
	stm, ok := d.Raw.Stream(o)
	if !ok {
		return nil, ErrNotStream
	}
	return d.Data(ctx, stm)
}

// Data returns the decoded payload of stm.
func (d *DecodedDocument) Data(ctx context.Context, stm *raw.StreamObj) ([]byte, error) {
	d.mu.Lock()
	cached, ok := d.cache[stm]
	d.mu.Unlock()
	if ok {
		return append([]byte(nil), cached...), nil
	}

	names, params := filters.ExtractFilters(d.Raw, stm.Dict)
	out, err := d.pipeline.Decode(ctx, stm.Data, names, params)
	if err != nil {
		return nil, fmt.Errorf("decode stream: %w", err)
	}
	if len(names) == 0 {
		out = append([]byte(nil), out...)
	}

	d.mu.Lock()
	d.cache[stm] = out
	d.mu.Unlock()
	return append([]byte(nil), out...), nil
}
