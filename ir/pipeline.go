package ir

import (
	"context"
	"fmt"

	"github.com/wudi/pdfedit/ir/decoded"
	"github.com/wudi/pdfedit/ir/semantic"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/parser"
)

type Pipeline struct {
	rawParser       *parser.DocumentParser
	decoder         decoded.Decoder
	semanticBuilder semantic.Builder
	logger          observability.Logger
	tracer          observability.Tracer
}

// Options configures the load pipeline.
type Options struct {
	Parser parser.Config
	Tracer observability.Tracer
}

// NewDefault constructs a lenient pipeline that logs nothing.
func NewDefault() *Pipeline { return New(Options{}) }

func New(opts Options) *Pipeline {
	rp := parser.NewDocumentParser(opts.Parser)
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Pipeline{
		rawParser:       rp,
		decoder:         decoded.NewDecoder(rp.Pipeline()),
		semanticBuilder: semantic.NewBuilder(),
		logger:          observability.OrNop(opts.Parser.Logger),
		tracer:          tracer,
	}
}

// Parse orchestrates Raw -> Decoded -> Semantic pipeline.
func (p *Pipeline) Parse(ctx context.Context, data []byte) (*semantic.Document, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanLoad)
	defer span.Finish()

	rawDoc, err := p.rawParser.Parse(ctx, data)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("raw parsing failed: %w", err)
	}

	decodedDoc, err := p.decoder.Decode(ctx, rawDoc)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("decoding failed: %w", err)
	}

	semDoc, err := p.semanticBuilder.Build(ctx, decodedDoc)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("semantic building failed: %w", err)
	}
	span.SetTag(observability.MetricPageCount, len(semDoc.Pages))
	p.logger.Debug("document loaded",
		observability.Int(observability.MetricPageCount, len(semDoc.Pages)),
		observability.Int(observability.MetricObjectCount, len(rawDoc.Objects)),
	)
	return semDoc, nil
}
