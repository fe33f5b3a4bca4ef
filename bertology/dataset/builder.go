package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/sourcegraph/conc/pool"

	"github.com/zpeng1989/bertology-sklearn/bertology/features"
	"github.com/zpeng1989/bertology-sklearn/bertology/labels"
	"github.com/zpeng1989/bertology-sklearn/bertology/tokenizer"
)

// sampleLogCount is how many decoded records Build logs for inspection.
const sampleLogCount = 3

// Builder encodes a corpus of examples into an EncodedDataset using a
// fixed-size worker pool. Each worker constructs its own tokenizer from the
// supplied factory; nothing is shared mutably between workers.
type Builder struct {
	workers       int
	assertHandler *assert.AssertHandler
}

// NewBuilder creates a builder with the given worker count. Zero or negative
// selects a small CPU-derived default.
func NewBuilder(workers int) *Builder {
	if workers <= 0 {
		workers = min(max(runtime.NumCPU()/2, 1), 8)
	}
	return &Builder{
		workers:       workers,
		assertHandler: assert.NewAssertHandler(),
	}
}

// Build encodes every example, preserving input order in the output columns.
// A single failed example aborts the whole build: the stacked dataset needs
// uniform shape across all records, so there is no partial-result recovery.
func (b *Builder) Build(ctx context.Context, examples []features.Example, factory tokenizer.Factory, vocab *labels.Vocabulary, opts features.Options) (*EncodedDataset, error) {
	slog.Info("converting examples to features",
		"examples", len(examples),
		"workers", b.workers,
		"maxSeqLength", opts.MaxSeqLength,
		"nested", opts.Nested)

	records := make([]*features.Record, len(examples))

	p := pool.New().WithMaxGoroutines(b.workers).WithContext(ctx).WithCancelOnError()
	for _, span := range shard(len(examples), b.workers) {
		p.Go(func(ctx context.Context) error {
			tok, err := factory.New()
			if err != nil {
				return fmt.Errorf("failed to construct worker tokenizer: %w", err)
			}
			enc := features.NewEncoder(tok, vocab, opts)

			for i := span.lo; i < span.hi; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				rec, err := enc.Encode(examples[i])
				if err != nil {
					return err
				}
				records[i] = rec
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("dataset build aborted: %w", err)
	}

	b.logSamples(records, factory)

	ds := Stack(records, opts, vocab.Size())
	b.assertHandler.Assert(ctx, ds.Len() == len(examples), "encoded dataset row count must equal example count")
	return ds, nil
}

// logSamples decodes the first few records for manual inspection. Diagnostic
// only; failures here never affect the build.
func (b *Builder) logSamples(records []*features.Record, factory tokenizer.Factory) {
	tok, err := factory.New()
	if err != nil {
		slog.Warn("skipping sample logging, tokenizer unavailable", "error", err)
		return
	}

	for i, rec := range records {
		if i >= sampleLogCount {
			break
		}
		slog.Info("encoded example",
			"index", i+1,
			"tokens", strings.Join(tok.ConvertIDsToTokens(rec.InputIDs), " "),
			"input_ids", joinInt64(rec.InputIDs),
			"attention_mask", joinInt64(rec.AttentionMask),
			"segment_ids", joinInt64(rec.SegmentIDs),
			"label_ids", joinInt64(rec.LabelIDs),
			"label_mask", joinInt64(rec.LabelMask))
	}
}

type span struct {
	lo, hi int
}

// shard splits n items into at most k contiguous spans of near-equal size.
// Workers write results by original index, so output order always matches
// input order regardless of scheduling.
func shard(n, k int) []span {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	spans := make([]span, 0, k)
	size := n / k
	rem := n % k
	lo := 0
	for i := 0; i < k; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		spans = append(spans, span{lo: lo, hi: hi})
		lo = hi
	}
	return spans
}

func joinInt64(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " ")
}
