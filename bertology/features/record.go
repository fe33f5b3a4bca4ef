package features

import (
	"fmt"
)

// Label mask values. Positions marked MaskScore participate in loss and
// metric computation; MaskIgnore marks real tokens excluded from scoring
// (continuation subword pieces and structural tokens); MaskPad marks padding.
const (
	MaskScore  int64 = 1
	MaskPad    int64 = 0
	MaskIgnore int64 = -100
)

// ErrLengthInvariant signals that an encoded record's sequences do not all
// equal the configured max sequence length. This is an internal-consistency
// failure, never a recoverable input error.
var ErrLengthInvariant = fmt.Errorf("encoded sequence length invariant violated")

// Record is one fixed-length feature record: five parallel sequences of
// identical length. In single-label mode LabelIDs is populated; in nested
// mode LabelVectors holds one multi-hot vector per position instead.
type Record struct {
	InputIDs      []int64   `json:"input_ids"`
	AttentionMask []int64   `json:"attention_mask"`
	SegmentIDs    []int64   `json:"segment_ids"`
	LabelIDs      []int64   `json:"label_ids,omitempty"`
	LabelVectors  [][]int64 `json:"label_vectors,omitempty"`
	LabelMask     []int64   `json:"label_mask"`
}

// CheckLength verifies that all five sequences have exactly the given length.
func (r *Record) CheckLength(maxSeqLength int, nested bool) error {
	labelLen := len(r.LabelIDs)
	if nested {
		labelLen = len(r.LabelVectors)
	}
	for name, n := range map[string]int{
		"input_ids":      len(r.InputIDs),
		"attention_mask": len(r.AttentionMask),
		"segment_ids":    len(r.SegmentIDs),
		"label_ids":      labelLen,
		"label_mask":     len(r.LabelMask),
	} {
		if n != maxSeqLength {
			return fmt.Errorf("%w: %s has length %d, want %d", ErrLengthInvariant, name, n, maxSeqLength)
		}
	}
	return nil
}

// recordBuilder accumulates the token, label and mask sequences during
// encoding. Every append advances all parallel sequences together so no code
// path can desynchronize them.
type recordBuilder struct {
	nested bool

	tokens    []string
	labelIDs  []int64
	labelVecs [][]int64
	labelMask []int64
}

func newRecordBuilder(nested bool, capacity int) *recordBuilder {
	b := &recordBuilder{nested: nested}
	b.tokens = make([]string, 0, capacity)
	b.labelMask = make([]int64, 0, capacity)
	if nested {
		b.labelVecs = make([][]int64, 0, capacity)
	} else {
		b.labelIDs = make([]int64, 0, capacity)
	}
	return b
}

// append adds one position. Exactly one of labelID / labelVec is consulted
// depending on mode.
func (b *recordBuilder) append(token string, labelID int64, labelVec []int64, mask int64) {
	b.tokens = append(b.tokens, token)
	if b.nested {
		b.labelVecs = append(b.labelVecs, labelVec)
	} else {
		b.labelIDs = append(b.labelIDs, labelID)
	}
	b.labelMask = append(b.labelMask, mask)
}

// prepend inserts one position at the front (classifier-token placement).
func (b *recordBuilder) prepend(token string, labelID int64, labelVec []int64, mask int64) {
	b.tokens = append([]string{token}, b.tokens...)
	if b.nested {
		b.labelVecs = append([][]int64{labelVec}, b.labelVecs...)
	} else {
		b.labelIDs = append([]int64{labelID}, b.labelIDs...)
	}
	b.labelMask = append([]int64{mask}, b.labelMask...)
}

// truncate keeps the first n positions of every sequence.
func (b *recordBuilder) truncate(n int) {
	if len(b.tokens) <= n {
		return
	}
	b.tokens = b.tokens[:n]
	if b.nested {
		b.labelVecs = b.labelVecs[:n]
	} else {
		b.labelIDs = b.labelIDs[:n]
	}
	b.labelMask = b.labelMask[:n]
}

func (b *recordBuilder) len() int {
	return len(b.tokens)
}
