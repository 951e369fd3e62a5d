package filters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wudi/pdfedit/ir/raw"
)

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params *raw.DictObj) ([]byte, error)
}

var (
	ErrUnsupportedFilter = errors.New("unsupported filter")
	ErrSizeLimit         = errors.New("decompressed size exceeds limit")
)

type Limits struct {
	MaxDecompressedSize int64
	MaxDecodeTime       time.Duration
}

type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

// NewPipeline constructs a pipeline with provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	p := &Pipeline{decoders: make(map[string]Decoder, len(decoders)), limits: limits}
	for _, d := range decoders {
		p.decoders[d.Name()] = d
	}
	return p
}

// DefaultPipeline registers every decoder needed for content, font and
// cross-reference streams. Image-only codecs (DCT, JPX, JBIG2, CCITT) are
// left out; streams using them stay encoded.
func DefaultPipeline(limits Limits) *Pipeline {
	return NewPipeline([]Decoder{
		NewFlateDecoder(limits.MaxDecompressedSize),
		NewLZWDecoder(limits.MaxDecompressedSize),
		NewASCII85Decoder(),
		NewASCIIHexDecoder(),
		NewRunLengthDecoder(),
	}, limits)
}

// abbreviations allowed in inline images and found in the wild in streams
var aliases = map[string]string{
	"Fl":  "FlateDecode",
	"LZW": "LZWDecode",
	"A85": "ASCII85Decode",
	"AHx": "ASCIIHexDecode",
	"RL":  "RunLengthDecode",
}

// Supports reports whether every filter in names can be decoded.
func (p *Pipeline) Supports(names []string) bool {
	for _, n := range names {
		if _, ok := p.lookup(n); !ok {
			return false
		}
	}
	return true
}

func (p *Pipeline) lookup(name string) (Decoder, bool) {
	if full, ok := aliases[name]; ok {
		name = full
	}
	d, ok := p.decoders[name]
	return d, ok
}

func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []*raw.DictObj) ([]byte, error) {
	if p.limits.MaxDecodeTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.limits.MaxDecodeTime)
		defer cancel()
	}
	data := input
	for i, name := range filterNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec, ok := p.lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
		}
		var param *raw.DictObj
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, ErrSizeLimit
		}
		data = out
	}
	return data, nil
}

// readLimited drains r, failing once more than max bytes are produced. A
// truncated compressed stream keeps whatever was decoded before the error.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max > 0 {
		r = io.LimitReader(r, max+1)
	}
	out, err := io.ReadAll(r)
	if max > 0 && int64(len(out)) > max {
		return nil, ErrSizeLimit
	}
	if err != nil && len(out) > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) {
		return out, nil
	}
	return out, err
}
