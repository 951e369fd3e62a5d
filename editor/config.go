package editor

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wudi/pdfedit/filters"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/parser"
	"github.com/wudi/pdfedit/recovery"
)

type ParsingMode string

const (
	Strict     ParsingMode = "strict"
	BestEffort ParsingMode = "best-effort"
)

// SaveScope selects which runs of the page are masked and redrawn on save.
type SaveScope string

const (
	// ScopeAll redraws every run on the page, edited or not.
	ScopeAll SaveScope = "all"
	// ScopeEdited leaves untouched runs in the original content.
	ScopeEdited SaveScope = "edited"
)

// DefaultMaskMargin widens every mask, in PDF units, to cover edited text
// that grew longer than the original.
const DefaultMaskMargin = 100

type Config struct {
	MaxParseWorkers     int         `validate:"min=1,max=64"`
	MaskMargin          float64     `validate:"gte=0"`
	SaveScope           SaveScope   `validate:"oneof=all edited"`
	ParsingMode         ParsingMode `validate:"oneof=strict best-effort"`
	Compression         int         `validate:"min=-1,max=9"`
	MaxDecompressedSize int64       `validate:"gte=0"`
	// CombineDuplicateStreams merges byte-identical streams on save.
	// Unreachable objects are always dropped.
	CombineDuplicateStreams bool
	// Deterministic makes repeated saves of the same edits byte-identical
	// when Clock is fixed.
	Deterministic bool
	Logger        observability.Logger
	Tracer        observability.Tracer
	Clock         func() time.Time
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxParseWorkers:         4,
		MaskMargin:              DefaultMaskMargin,
		SaveScope:               ScopeAll,
		ParsingMode:             BestEffort,
		Compression:             6,
		MaxDecompressedSize:     256 << 20,
		CombineDuplicateStreams: true,
		Clock:                   time.Now,
	}
}

func (cfg *Config) Validate() error {
	return validator.New().Struct(cfg)
}

func (cfg *Config) logger() observability.Logger { return observability.OrNop(cfg.Logger) }

func (cfg *Config) tracer() observability.Tracer {
	if cfg.Tracer == nil {
		return observability.NopTracer()
	}
	return cfg.Tracer
}

func (cfg *Config) now() time.Time {
	if cfg.Clock == nil {
		return time.Now()
	}
	return cfg.Clock()
}

func (cfg *Config) parserConfig() parser.Config {
	var strategy recovery.Strategy
	if cfg.ParsingMode == Strict {
		strategy = recovery.NewStrictStrategy()
	} else {
		strategy = recovery.NewLenientStrategy(cfg.Logger)
	}
	return parser.Config{
		Recovery: strategy,
		Limits:   filters.Limits{MaxDecompressedSize: cfg.MaxDecompressedSize},
		Logger:   cfg.Logger,
	}
}
