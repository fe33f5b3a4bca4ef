// Package corpus loads word-labeled sequence corpora and turns raw
// word/label arrays into encoder-ready examples.
package corpus

import (
	"fmt"

	"github.com/zpeng1989/bertology-sklearn/bertology/features"
	"github.com/zpeng1989/bertology-sklearn/bertology/labels"
)

// OutsideLabel is the implicit non-entity tag, synthesized for every word
// when a corpus carries no labels (prediction-time input).
const OutsideLabel = "O"

// Processor wraps raw word sequences (X) and optional label sequences (y)
// and materializes examples. It mirrors the train/predict split: when y is
// nil every word receives the OutsideLabel.
type Processor struct {
	wordSeqs  [][]string
	labelSeqs [][]string
	labelSets [][][]string
	nested    bool
	labeled   bool
}

// NewProcessor builds a single-label processor. labelSeqs may be nil.
func NewProcessor(wordSeqs [][]string, labelSeqs [][]string) *Processor {
	return &Processor{
		wordSeqs:  wordSeqs,
		labelSeqs: labelSeqs,
		labeled:   labelSeqs != nil,
	}
}

// NewNestedProcessor builds a multi-label-per-word processor. labelSets may
// be nil.
func NewNestedProcessor(wordSeqs [][]string, labelSets [][][]string) *Processor {
	return &Processor{
		wordSeqs:  wordSeqs,
		labelSets: labelSets,
		nested:    true,
		labeled:   labelSets != nil,
	}
}

// Nested reports whether the processor runs in multi-label mode.
func (p *Processor) Nested() bool {
	return p.nested
}

// Examples materializes one example per word sequence, guids numbered from 1.
func (p *Processor) Examples() []features.Example {
	examples := make([]features.Example, len(p.wordSeqs))
	for i, words := range p.wordSeqs {
		ex := features.Example{
			GUID:   fmt.Sprintf("tokens-%d", i+1),
			Tokens: words,
		}
		if p.nested {
			ex.LabelSets = p.exampleLabelSets(i, len(words))
		} else {
			ex.Labels = p.exampleLabels(i, len(words))
		}
		examples[i] = ex
	}
	return examples
}

// Vocabulary builds the training label vocabulary from the wrapped corpus.
// Evaluation callers must not use this; they reuse the training label list
// through labels.FromList.
func (p *Processor) Vocabulary() *labels.Vocabulary {
	return labels.Build(features.LabelSeqs(p.Examples(), p.nested))
}

func (p *Processor) exampleLabels(i, n int) []string {
	if p.labeled && i < len(p.labelSeqs) {
		return p.labelSeqs[i]
	}
	fill := make([]string, n)
	for j := range fill {
		fill[j] = OutsideLabel
	}
	return fill
}

func (p *Processor) exampleLabelSets(i, n int) [][]string {
	if p.labeled && i < len(p.labelSets) {
		return p.labelSets[i]
	}
	fill := make([][]string, n)
	for j := range fill {
		fill[j] = []string{OutsideLabel}
	}
	return fill
}
