// Package optimize removes and merges indirect objects before a document is
// written.
package optimize

import (
	"context"

	"github.com/wudi/pdfedit/ir/raw"
)

type Config struct {
	// PruneUnreachable drops objects the trailer no longer reaches, such as
	// stripped metadata packets or objects of superseded revisions.
	PruneUnreachable bool
	// CombineDuplicateStreams keeps one copy of byte-identical streams.
	CombineDuplicateStreams bool
}

// Stats counts what a pass removed.
type Stats struct {
	Pruned   int
	Combined int
}

type Optimizer struct {
	config Config
}

func New(config Config) *Optimizer {
	return &Optimizer{config: config}
}

// Optimize rewrites doc in place.
func (o *Optimizer) Optimize(ctx context.Context, doc *raw.Document) (Stats, error) {
	var st Stats
	if o.config.PruneUnreachable {
		st.Pruned = prune(doc)
	}
	if err := ctx.Err(); err != nil {
		return st, err
	}
	if o.config.CombineDuplicateStreams {
		st.Combined = combineStreams(doc)
	}
	return st, ctx.Err()
}
