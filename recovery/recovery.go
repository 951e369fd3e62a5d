package recovery

import "context"

// Strategy decides what the loader does when it meets a malformed construct.
type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	case ActionFix:
		return "fix"
	case ActionWarn:
		return "warn"
	}
	return "unknown"
}

// ForMode maps a parsing mode name onto a strategy: "strict" fails fast,
// anything else recovers.
func ForMode(mode string) Strategy {
	if mode == "strict" {
		return NewStrictStrategy()
	}
	return NewLenientStrategy(nil)
}
