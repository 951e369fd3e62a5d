package editor

import "errors"

var (
	// ErrLoad wraps every failure to open the input document, including
	// parser.ErrEncrypted.
	ErrLoad         = errors.New("pdf could not be loaded")
	ErrNoPage       = errors.New("page not available")
	ErrUnknownRun   = errors.New("unknown text run")
	ErrInvalidScale = errors.New("invalid render scale")
	// ErrStage reports a reconstruction step taken out of order.
	ErrStage = errors.New("reconstruction step out of order")
)
