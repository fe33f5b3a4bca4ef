// Package dataset drives example encoding across a worker pool, stacks the
// per-example records into a columnar dataset, and optionally persists the
// result in a libsql-backed cache.
package dataset

import (
	"gonum.org/v1/gonum/mat"

	"github.com/zpeng1989/bertology-sklearn/bertology/features"
)

// EncodedDataset is the column-oriented aggregate of N feature records: five
// aligned columnar sequences of length N, each element of length
// MaxSeqLength. Built once, never mutated after construction.
type EncodedDataset struct {
	InputIDs      [][]int64   `json:"input_ids"`
	AttentionMask [][]int64   `json:"attention_mask"`
	SegmentIDs    [][]int64   `json:"segment_ids"`
	LabelIDs      [][]int64   `json:"label_ids,omitempty"`
	LabelVectors  [][][]int64 `json:"label_vectors,omitempty"`
	LabelMask     [][]int64   `json:"label_mask"`

	Nested       bool `json:"nested"`
	MaxSeqLength int  `json:"max_seq_length"`
	VocabSize    int  `json:"vocab_size"`
}

// Stack assembles per-example records, in order, into columnar form.
func Stack(records []*features.Record, opts features.Options, vocabSize int) *EncodedDataset {
	n := len(records)
	ds := &EncodedDataset{
		InputIDs:      make([][]int64, n),
		AttentionMask: make([][]int64, n),
		SegmentIDs:    make([][]int64, n),
		LabelMask:     make([][]int64, n),
		Nested:        opts.Nested,
		MaxSeqLength:  opts.MaxSeqLength,
		VocabSize:     vocabSize,
	}
	if opts.Nested {
		ds.LabelVectors = make([][][]int64, n)
	} else {
		ds.LabelIDs = make([][]int64, n)
	}

	for i, rec := range records {
		ds.InputIDs[i] = rec.InputIDs
		ds.AttentionMask[i] = rec.AttentionMask
		ds.SegmentIDs[i] = rec.SegmentIDs
		ds.LabelMask[i] = rec.LabelMask
		if opts.Nested {
			ds.LabelVectors[i] = rec.LabelVectors
		} else {
			ds.LabelIDs[i] = rec.LabelIDs
		}
	}
	return ds
}

// Len returns the number of encoded examples.
func (d *EncodedDataset) Len() int {
	return len(d.InputIDs)
}

// InputMatrix returns the token-id column as an N x L dense float matrix for
// downstream numeric consumers.
func (d *EncodedDataset) InputMatrix() *mat.Dense {
	return toDense(d.InputIDs, d.MaxSeqLength)
}

// MaskMatrix returns the attention-mask column as an N x L dense float matrix.
func (d *EncodedDataset) MaskMatrix() *mat.Dense {
	return toDense(d.AttentionMask, d.MaxSeqLength)
}

func toDense(rows [][]int64, cols int) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(len(rows), cols, data)
}
