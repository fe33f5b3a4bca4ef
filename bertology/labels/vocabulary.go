package labels

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/armon/go-radix"
)

// Sentinel entries reserved in every vocabulary. PadLabel is always index 0.
const (
	PadLabel   = "<PAD>"
	StartLabel = "<START>"
	EndLabel   = "<END>"
)

// ErrUnknownLabel is returned when a label string is absent from the
// vocabulary. Lookups never fall back to a substitute id: silently mapping an
// unseen label to an arbitrary index would corrupt the training signal.
var ErrUnknownLabel = fmt.Errorf("label not present in vocabulary")

// Vocabulary is an ordered, deduplicated label index with fixed sentinel
// slots. Indices are stable once built; an evaluation pass must reuse the
// vocabulary built from training data via FromList rather than rebuilding.
type Vocabulary struct {
	list  []string
	index map[string]int64
	tree  *radix.Tree // prefix index over label strings
}

// Build collects every label observed across the given per-example label
// sequences and assembles the vocabulary:
//
//	['<PAD>', '<START>'] + sorted(unique(labels)) + ['<END>']
//
// Nested-mode callers flatten each word's label set into its sequence first
// (see features.Example.LabelSeq). An empty corpus yields only the sentinels.
func Build(labelSeqs [][]string) *Vocabulary {
	seen := make(map[string]struct{})
	for _, seq := range labelSeqs {
		for _, label := range seq {
			seen[label] = struct{}{}
		}
	}

	unique := make([]string, 0, len(seen))
	for label := range seen {
		unique = append(unique, label)
	}
	sort.Strings(unique)

	list := make([]string, 0, len(unique)+3)
	list = append(list, PadLabel, StartLabel)
	list = append(list, unique...)
	list = append(list, EndLabel)

	return FromList(list)
}

// FromList wraps an already-built ordered label list. This is the entry point
// for evaluation: the label list produced during training is supplied as-is
// so that indices line up between the two passes.
func FromList(list []string) *Vocabulary {
	v := &Vocabulary{
		list:  append([]string(nil), list...),
		index: make(map[string]int64, len(list)),
		tree:  radix.New(),
	}
	for i, label := range v.list {
		if _, ok := v.index[label]; ok {
			continue // first occurrence wins, mirrors positional indexing
		}
		v.index[label] = int64(i)
		v.tree.Insert(label, int64(i))
	}
	return v
}

// Index returns the integer id for a label string.
func (v *Vocabulary) Index(label string) (int64, error) {
	id, ok := v.index[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return id, nil
}

// Label returns the label string at the given index.
func (v *Vocabulary) Label(id int64) (string, error) {
	if id < 0 || id >= int64(len(v.list)) {
		return "", fmt.Errorf("label id %d out of range [0, %d)", id, len(v.list))
	}
	return v.list[id], nil
}

// Size returns the number of entries, sentinels included.
func (v *Vocabulary) Size() int {
	return len(v.list)
}

// Labels returns a copy of the ordered label list.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.list...)
}

// MultiHot encodes a label set as a fixed-width 0/1 vector of length Size().
// The set is accumulated in a roaring bitmap first so duplicate members
// collapse before materialization.
func (v *Vocabulary) MultiHot(labelSet []string) ([]int64, error) {
	bm := roaring.New()
	for _, label := range labelSet {
		id, err := v.Index(label)
		if err != nil {
			return nil, err
		}
		bm.Add(uint32(id))
	}

	vec := make([]int64, v.Size())
	bm.Iterate(func(id uint32) bool {
		vec[id] = 1
		return true
	})
	return vec, nil
}

// ZeroVector returns an all-zero multi-hot vector, used for continuation
// subword pieces and structural tokens in nested mode.
func (v *Vocabulary) ZeroVector() []int64 {
	return make([]int64, v.Size())
}

// WithPrefix walks the prefix index and returns all labels sharing the given
// prefix in lexicographic order, e.g. WithPrefix("B-") for all begin tags.
func (v *Vocabulary) WithPrefix(prefix string) []string {
	var out []string
	v.tree.WalkPrefix(prefix, func(label string, _ interface{}) bool {
		out = append(out, label)
		return false
	})
	return out
}
