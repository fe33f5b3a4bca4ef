package features

import (
	"fmt"
)

// ErrLabelMismatch is returned when an example's label sequence does not line
// up with its word sequence. Malformed examples are rejected before encoding.
var ErrLabelMismatch = fmt.Errorf("token/label length mismatch")

// Example is a single word-labeled sequence as loaded from a corpus.
//
// Labels carries one label per word in single-label mode. LabelSets carries
// one label set per word in nested mode; exactly one of the two is populated.
type Example struct {
	GUID      string     `json:"guid"`
	Tokens    []string   `json:"tokens"`
	Labels    []string   `json:"labels,omitempty"`
	LabelSets [][]string `json:"label_sets,omitempty"`
}

// Validate checks the parallel-sequence invariant for the given mode.
func (ex Example) Validate(nested bool) error {
	if nested {
		if len(ex.Tokens) != len(ex.LabelSets) {
			return fmt.Errorf("%w: example %s has %d tokens and %d label sets",
				ErrLabelMismatch, ex.GUID, len(ex.Tokens), len(ex.LabelSets))
		}
		return nil
	}
	if len(ex.Tokens) != len(ex.Labels) {
		return fmt.Errorf("%w: example %s has %d tokens and %d labels",
			ErrLabelMismatch, ex.GUID, len(ex.Tokens), len(ex.Labels))
	}
	return nil
}

// LabelSeq returns the example's labels as a flat sequence: the label list in
// single-label mode, the flattened union of label sets in nested mode. This
// feeds vocabulary construction.
func (ex Example) LabelSeq(nested bool) []string {
	if !nested {
		return ex.Labels
	}
	var flat []string
	for _, set := range ex.LabelSets {
		flat = append(flat, set...)
	}
	return flat
}

// LabelSeqs flattens a corpus into per-example label sequences for
// labels.Build.
func LabelSeqs(examples []Example, nested bool) [][]string {
	seqs := make([][]string, len(examples))
	for i, ex := range examples {
		seqs[i] = ex.LabelSeq(nested)
	}
	return seqs
}
