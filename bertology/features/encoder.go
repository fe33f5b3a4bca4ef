package features

import (
	"fmt"

	"github.com/zpeng1989/bertology-sklearn/bertology/labels"
	"github.com/zpeng1989/bertology-sklearn/bertology/tokenizer"
)

// Options is the configuration surface of the encoder. Defaults follow the
// BERT single-sentence convention; see DefaultOptions.
type Options struct {
	MaxSeqLength        int    `mapstructure:"maxSeqLength"`
	ClsToken            string `mapstructure:"clsToken"`
	ClsTokenAtEnd       bool   `mapstructure:"clsTokenAtEnd"`
	ClsTokenSegmentID   int64  `mapstructure:"clsTokenSegmentId"`
	SepToken            string `mapstructure:"sepToken"`
	SepTokenExtra       bool   `mapstructure:"sepTokenExtra"`
	PadOnLeft           bool   `mapstructure:"padOnLeft"`
	PadToken            int64  `mapstructure:"padToken"`
	PadTokenSegmentID   int64  `mapstructure:"padTokenSegmentId"`
	PadTokenLabelID     int64  `mapstructure:"padTokenLabelId"`
	SequenceASegmentID  int64  `mapstructure:"sequenceASegmentId"`
	MaskPaddingWithZero bool   `mapstructure:"maskPaddingWithZero"`
	Nested              bool   `mapstructure:"nested"`
}

// DefaultOptions returns the standard BERT-style configuration for the given
// fixed sequence length.
func DefaultOptions(maxSeqLength int) Options {
	return Options{
		MaxSeqLength:        maxSeqLength,
		ClsToken:            "[CLS]",
		ClsTokenSegmentID:   1,
		SepToken:            "[SEP]",
		PadToken:            0,
		PadTokenSegmentID:   0,
		PadTokenLabelID:     MaskIgnore,
		SequenceASegmentID:  0,
		MaskPaddingWithZero: true,
	}
}

// Encoder aligns word-level labels to subword granularity and produces
// fixed-length feature records. It borrows the vocabulary read-only and holds
// its own tokenizer handle; construct one encoder per worker.
type Encoder struct {
	tok   tokenizer.WordTokenizer
	vocab *labels.Vocabulary
	opts  Options
}

// NewEncoder builds an encoder over the given tokenizer and label vocabulary.
func NewEncoder(tok tokenizer.WordTokenizer, vocab *labels.Vocabulary, opts Options) *Encoder {
	return &Encoder{tok: tok, vocab: vocab, opts: opts}
}

// Encode converts one word-labeled example into a fixed-length record.
//
// The word's label lands on its first subword piece only; continuation pieces
// carry the neutral label and the ignore mask so they never contribute to the
// loss. Words the tokenizer maps to zero pieces are dropped entirely, which
// intentionally desynchronizes word count from emitted length.
func (e *Encoder) Encode(ex Example) (*Record, error) {
	if err := ex.Validate(e.opts.Nested); err != nil {
		return nil, err
	}

	b := newRecordBuilder(e.opts.Nested, e.opts.MaxSeqLength)

	for i, word := range ex.Tokens {
		pieces, err := e.tok.TokenizeWord(word)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
		}
		if len(pieces) == 0 {
			continue
		}

		labelID, labelVec, err := e.wordLabel(ex, i)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
		}

		b.append(pieces[0], labelID, labelVec, MaskScore)
		for _, piece := range pieces[1:] {
			b.append(piece, 0, e.zeroLabelVec(), e.opts.PadTokenLabelID)
		}
	}

	// Reserve room for [CLS] and [SEP]; dual-separator tokenizers need one more.
	reserved := 2
	if e.opts.SepTokenExtra {
		reserved = 3
	}
	b.truncate(e.opts.MaxSeqLength - reserved)

	endID, endVec, err := e.sentinelLabel(labels.EndLabel)
	if err != nil {
		return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
	}
	b.append(e.opts.SepToken, endID, endVec, e.opts.PadTokenLabelID)
	if e.opts.SepTokenExtra {
		b.append(e.opts.SepToken, 0, e.zeroLabelVec(), e.opts.PadTokenLabelID)
	}

	segmentIDs := make([]int64, b.len(), b.len()+1)
	for i := range segmentIDs {
		segmentIDs[i] = e.opts.SequenceASegmentID
	}

	if e.opts.ClsTokenAtEnd {
		b.append(e.opts.ClsToken, 0, e.zeroLabelVec(), e.opts.PadTokenLabelID)
		segmentIDs = append(segmentIDs, e.opts.ClsTokenSegmentID)
	} else {
		startID, startVec, err := e.sentinelLabel(labels.StartLabel)
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
		}
		b.prepend(e.opts.ClsToken, startID, startVec, e.opts.PadTokenLabelID)
		segmentIDs = append([]int64{e.opts.ClsTokenSegmentID}, segmentIDs...)
	}

	inputIDs, err := e.tok.ConvertTokensToIDs(b.tokens)
	if err != nil {
		return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
	}

	realMask := int64(1)
	padMask := int64(0)
	if !e.opts.MaskPaddingWithZero {
		realMask, padMask = 0, 1
	}
	attentionMask := make([]int64, len(inputIDs))
	for i := range attentionMask {
		attentionMask[i] = realMask
	}

	rec := &Record{
		InputIDs:      inputIDs,
		AttentionMask: attentionMask,
		SegmentIDs:    segmentIDs,
		LabelIDs:      b.labelIDs,
		LabelVectors:  b.labelVecs,
		LabelMask:     b.labelMask,
	}
	e.pad(rec, padMask)

	if err := rec.CheckLength(e.opts.MaxSeqLength, e.opts.Nested); err != nil {
		return nil, fmt.Errorf("example %s: %w", ex.GUID, err)
	}
	return rec, nil
}

// wordLabel resolves the label for word i: an index in single-label mode, a
// multi-hot vector over the word's label set in nested mode.
func (e *Encoder) wordLabel(ex Example, i int) (int64, []int64, error) {
	if e.opts.Nested {
		vec, err := e.vocab.MultiHot(ex.LabelSets[i])
		return 0, vec, err
	}
	id, err := e.vocab.Index(ex.Labels[i])
	return id, nil, err
}

// sentinelLabel resolves a sentinel either as an index or as a one-hot
// vector. <START> sits at position 0 in both modes.
func (e *Encoder) sentinelLabel(sentinel string) (int64, []int64, error) {
	if e.opts.Nested {
		vec, err := e.vocab.MultiHot([]string{sentinel})
		return 0, vec, err
	}
	id, err := e.vocab.Index(sentinel)
	return id, nil, err
}

func (e *Encoder) zeroLabelVec() []int64 {
	if !e.opts.Nested {
		return nil
	}
	return e.vocab.ZeroVector()
}

// pad extends all five sequences to MaxSeqLength on the configured side.
// Label mask padding is 0, distinct from the -100 ignore sentinel carried by
// real-but-unscored positions.
func (e *Encoder) pad(rec *Record, padMask int64) {
	padLen := e.opts.MaxSeqLength - len(rec.InputIDs)
	if padLen <= 0 {
		return
	}

	padIDs := repeat(e.opts.PadToken, padLen)
	padAttn := repeat(padMask, padLen)
	padSeg := repeat(e.opts.PadTokenSegmentID, padLen)
	padLabelMask := repeat(MaskPad, padLen)

	var padVecs [][]int64
	if e.opts.Nested {
		padVecs = make([][]int64, padLen)
		for i := range padVecs {
			padVecs[i] = e.vocab.ZeroVector()
		}
	}

	if e.opts.PadOnLeft {
		rec.InputIDs = append(padIDs, rec.InputIDs...)
		rec.AttentionMask = append(padAttn, rec.AttentionMask...)
		rec.SegmentIDs = append(padSeg, rec.SegmentIDs...)
		if e.opts.Nested {
			rec.LabelVectors = append(padVecs, rec.LabelVectors...)
		} else {
			rec.LabelIDs = append(repeat(0, padLen), rec.LabelIDs...)
		}
		rec.LabelMask = append(padLabelMask, rec.LabelMask...)
		return
	}

	rec.InputIDs = append(rec.InputIDs, padIDs...)
	rec.AttentionMask = append(rec.AttentionMask, padAttn...)
	rec.SegmentIDs = append(rec.SegmentIDs, padSeg...)
	if e.opts.Nested {
		rec.LabelVectors = append(rec.LabelVectors, padVecs...)
	} else {
		rec.LabelIDs = append(rec.LabelIDs, repeat(int64(0), padLen)...)
	}
	rec.LabelMask = append(rec.LabelMask, padLabelMask...)
}

func repeat(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
