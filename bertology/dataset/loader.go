package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zpeng1989/bertology-sklearn/bertology/features"
	"github.com/zpeng1989/bertology-sklearn/bertology/labels"
	"github.com/zpeng1989/bertology-sklearn/bertology/tokenizer"
)

// ErrMissingLabelList is returned when an evaluation build is requested
// without the training label list. Evaluation must reuse the vocabulary built
// from training data; rebuilding it from eval data would shift indices.
var ErrMissingLabelList = errors.New("evaluation build requires the training label list")

// BuildRequest captures one load-or-build invocation.
type BuildRequest struct {
	Key      CacheKey
	Examples []features.Example
	Factory  tokenizer.Factory
	Opts     features.Options

	// LabelList is the training-time label vocabulary, required when
	// Evaluate is set and ignored otherwise.
	LabelList []string
	Evaluate  bool
	// OverwriteCache forces a rebuild even when a cached dataset exists.
	OverwriteCache bool
}

// LoadOrBuild returns the cached dataset when one exists under the request
// key, unless the caller asked for evaluation-mode encoding or an explicit
// overwrite; otherwise it builds the dataset and, for training builds,
// persists it. The returned vocabulary is the one the dataset was encoded
// with, so training callers can hand its label list to the evaluation pass.
func (b *Builder) LoadOrBuild(ctx context.Context, store *CacheStore, req BuildRequest) (*EncodedDataset, *labels.Vocabulary, error) {
	var vocab *labels.Vocabulary
	if req.Evaluate {
		if len(req.LabelList) == 0 {
			return nil, nil, ErrMissingLabelList
		}
		vocab = labels.FromList(req.LabelList)
	} else {
		vocab = labels.Build(features.LabelSeqs(req.Examples, req.Opts.Nested))
	}
	slog.Info("label vocabulary ready", "labels", vocab.Labels())

	if store != nil && !req.Evaluate && !req.OverwriteCache {
		cached, err := store.Has(ctx, req.Key)
		if err != nil {
			return nil, nil, err
		}
		if cached {
			ds, err := store.Load(ctx, req.Key)
			if err != nil {
				return nil, nil, err
			}
			return ds, vocab, nil
		}
	}

	ds, err := b.Build(ctx, req.Examples, req.Factory, vocab, req.Opts)
	if err != nil {
		return nil, nil, err
	}

	if store != nil && !req.Evaluate {
		if err := store.Save(ctx, req.Key, ds); err != nil {
			return nil, nil, fmt.Errorf("built dataset but failed to cache it: %w", err)
		}
	}
	return ds, vocab, nil
}
