package filters

import (
	"bytes"
	"compress/flate"
	"compress/lzw"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"errors"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"

	"github.com/wudi/pdfedit/ir/raw"
)

type flateDecoder struct{ max int64 }

func (flateDecoder) Name() string           { return "FlateDecode" }
func NewFlateDecoder(maxSize int64) Decoder { return flateDecoder{max: maxSize} }

func (d flateDecoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	var out []byte
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err == nil {
		out, err = readLimited(zr, d.max)
		zr.Close()
	}
	if err != nil && !errors.Is(err, ErrSizeLimit) {
		// some producers omit the zlib header or write a bad checksum
		fr := flate.NewReader(bytes.NewReader(stripZlibHeader(in)))
		out, err = readLimited(fr, d.max)
		fr.Close()
	}
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}

func stripZlibHeader(in []byte) []byte {
	if len(in) >= 2 && in[0]&0x0F == 8 && (uint16(in[0])<<8|uint16(in[1]))%31 == 0 {
		return in[2:]
	}
	return in
}

// EncodeFlate compresses data into a zlib stream suitable for /FlateDecode.
func EncodeFlate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type lzwDecoder struct{ max int64 }

func (lzwDecoder) Name() string           { return "LZWDecode" }
func NewLZWDecoder(maxSize int64) Decoder { return lzwDecoder{max: maxSize} }

// Decode honours /EarlyChange. The default (1) is the TIFF flavour of LZW that
// switches code width one code early; 0 is the plain variant.
func (d lzwDecoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	var r io.ReadCloser
	if intParam(params, "EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(in), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(in), tifflzw.MSB, 8)
	}
	defer r.Close()
	out, err := readLimited(r, d.max)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }
func (ascii85Decoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, len(trimmed)*4/5+4+4*bytes.Count(trimmed, []byte("z")))
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }
func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	out := make([]byte, 0, len(in)/2+1)
	var hi byte
	half := false
	for _, c := range in {
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			if isSpace(c) {
				continue
			}
			return nil, errors.New("invalid hex digit")
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

type runLengthDecoder struct{}

func (runLengthDecoder) Name() string { return "RunLengthDecode" }
func (runLengthDecoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(in); {
		n := int(in[i])
		i++
		switch {
		case n == 128:
			return out.Bytes(), nil
		case n < 128:
			end := i + n + 1
			if end > len(in) {
				end = len(in)
			}
			out.Write(in[i:end])
			i = end
		default:
			if i >= len(in) {
				return out.Bytes(), nil
			}
			out.Write(bytes.Repeat(in[i:i+1], 257-n))
			i++
		}
	}
	return out.Bytes(), nil
}
func NewRunLengthDecoder() Decoder { return runLengthDecoder{} }

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func intParam(params *raw.DictObj, key string, def int) int {
	if params == nil {
		return def
	}
	o, ok := params.Get(key)
	if !ok {
		return def
	}
	if n, ok := o.(raw.NumberObj); ok {
		return int(n.Int())
	}
	return def
}
