package parser

import (
	"context"
	"sort"
)

// preOrder buffers blocks until their top-level ancestor closes, then
// forwards them to the wrapped sink sorted by Seq.
type preOrder struct {
	sink    Sink
	pending []Block
}

// PreOrder wraps sink so that it receives every block in document order:
// a heading before its descendants, siblings left to right. Blocks are
// buffered only while a top-level section is open.
func PreOrder(sink Sink) Sink {
	return &preOrder{sink: sink}
}

func (p *preOrder) Block(ctx context.Context, b Block) error {
	p.pending = append(p.pending, b)
	if b.Parent != RootSeq {
		return nil
	}

	batch := p.pending
	p.pending = nil
	sort.Slice(batch, func(i, j int) bool { return batch[i].Seq < batch[j].Seq })
	for _, blk := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.sink.Block(ctx, blk); err != nil {
			return err
		}
	}
	return nil
}
