package features

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zpeng1989/bertology-sklearn/bertology/labels"
)

// fakeTokenizer splits words according to a fixed table and resolves pieces
// through a fixed vocab. Words absent from the table map to themselves.
type fakeTokenizer struct {
	splits map[string][]string
	vocab  map[string]int64
	inv    map[int64]string
}

func newFakeTokenizer(splits map[string][]string, vocab map[string]int64) *fakeTokenizer {
	inv := make(map[int64]string, len(vocab))
	for tok, id := range vocab {
		inv[id] = tok
	}
	return &fakeTokenizer{splits: splits, vocab: vocab, inv: inv}
}

func (f *fakeTokenizer) TokenizeWord(word string) ([]string, error) {
	if pieces, ok := f.splits[word]; ok {
		return pieces, nil
	}
	return []string{word}, nil
}

func (f *fakeTokenizer) ConvertTokensToIDs(tokens []string) ([]int64, error) {
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		id, ok := f.vocab[tok]
		if !ok {
			return nil, fmt.Errorf("token %q not in fake vocab", tok)
		}
		ids[i] = id
	}
	return ids, nil
}

func (f *fakeTokenizer) ConvertIDsToTokens(ids []int64) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = f.inv[id]
	}
	return tokens
}

// parisTokenizer reproduces the canonical scenario: "Paris" splits into two
// pieces, everything else is a single piece.
func parisTokenizer() *fakeTokenizer {
	return newFakeTokenizer(
		map[string][]string{"Paris": {"Par", "##is"}},
		map[string]int64{
			"[PAD]": 0, "[UNK]": 1, "[CLS]": 101, "[SEP]": 102,
			"Par": 5, "##is": 6, "is": 7, "nice": 8,
			"a": 11, "b": 12, "c": 13, "d": 14, "e": 15,
		},
	)
}

func parisVocab() *labels.Vocabulary {
	// ['<PAD>', '<START>', 'B-LOC', 'O', '<END>']
	return labels.Build([][]string{{"B-LOC", "O", "O"}})
}

func TestEncoder(t *testing.T) {
	tests := []struct {
		name string
		test func(t *testing.T)
	}{
		{"CanonicalScenario", testEncoderCanonicalScenario},
		{"LengthInvariant", testEncoderLengthInvariant},
		{"MaskPartition", testEncoderMaskPartition},
		{"FirstSubwordLabeling", testEncoderFirstSubwordLabeling},
		{"TruncationBoundary", testEncoderTruncationBoundary},
		{"PadOnLeft", testEncoderPadOnLeft},
		{"ClsTokenAtEnd", testEncoderClsTokenAtEnd},
		{"SepTokenExtra", testEncoderSepTokenExtra},
		{"ZeroPieceWordDropped", testEncoderZeroPieceWordDropped},
		{"NestedMode", testEncoderNestedMode},
		{"MalformedExample", testEncoderMalformedExample},
		{"UnknownLabel", testEncoderUnknownLabel},
		{"MaskPaddingFlipped", testEncoderMaskPaddingFlipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.test)
	}
}

func testEncoderCanonicalScenario(t *testing.T) {
	enc := NewEncoder(parisTokenizer(), parisVocab(), DefaultOptions(8))

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"Paris", "is", "nice"},
		Labels: []string{"B-LOC", "O", "O"},
	})
	require.NoError(t, err)

	// [CLS] Par ##is is nice [SEP] [PAD] [PAD]
	assert.Equal(t, []int64{101, 5, 6, 7, 8, 102, 0, 0}, rec.InputIDs)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 1, 0, 0}, rec.AttentionMask)
	assert.Equal(t, []int64{1, 0, 0, 0, 0, 0, 0, 0}, rec.SegmentIDs)
	// <START> B-LOC neutral O O <END> pad pad
	assert.Equal(t, []int64{1, 2, 0, 3, 3, 4, 0, 0}, rec.LabelIDs)
	assert.Equal(t, []int64{-100, 1, -100, 1, 1, -100, 0, 0}, rec.LabelMask)
}

func testEncoderLengthInvariant(t *testing.T) {
	ex := Example{
		GUID:   "tokens-1",
		Tokens: []string{"Paris", "is", "nice"},
		Labels: []string{"B-LOC", "O", "O"},
	}

	variants := []func(*Options){
		func(o *Options) {},
		func(o *Options) { o.PadOnLeft = true },
		func(o *Options) { o.ClsTokenAtEnd = true },
		func(o *Options) { o.SepTokenExtra = true },
		func(o *Options) { o.MaskPaddingWithZero = false },
		func(o *Options) { o.MaxSeqLength = 5 }, // forces truncation
		func(o *Options) { o.MaxSeqLength = 64 },
	}

	for i, mutate := range variants {
		opts := DefaultOptions(16)
		mutate(&opts)
		enc := NewEncoder(parisTokenizer(), parisVocab(), opts)

		rec, err := enc.Encode(ex)
		require.NoError(t, err, "variant %d", i)
		require.NoError(t, rec.CheckLength(opts.MaxSeqLength, false), "variant %d", i)
	}
}

func testEncoderMaskPartition(t *testing.T) {
	enc := NewEncoder(parisTokenizer(), parisVocab(), DefaultOptions(10))

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"Paris", "is"},
		Labels: []string{"B-LOC", "O"},
	})
	require.NoError(t, err)

	scored, padded, ignored := 0, 0, 0
	for _, m := range rec.LabelMask {
		switch m {
		case MaskScore:
			scored++
		case MaskPad:
			padded++
		case MaskIgnore:
			ignored++
		default:
			t.Fatalf("unexpected label mask value %d", m)
		}
	}
	assert.Equal(t, 2, scored, "one scored position per word")
	assert.Equal(t, 3, ignored, "[CLS], continuation piece and [SEP]")
	assert.Equal(t, 5, padded)
}

func testEncoderFirstSubwordLabeling(t *testing.T) {
	tok := newFakeTokenizer(
		map[string][]string{"longword": {"lo", "##ng", "##word"}},
		map[string]int64{"[CLS]": 101, "[SEP]": 102, "lo": 20, "##ng": 21, "##word": 22},
	)
	vocab := labels.Build([][]string{{"B-PER"}})
	enc := NewEncoder(tok, vocab, DefaultOptions(8))

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"longword"},
		Labels: []string{"B-PER"},
	})
	require.NoError(t, err)

	id, err := vocab.Index("B-PER")
	require.NoError(t, err)
	startID, err := vocab.Index(labels.StartLabel)
	require.NoError(t, err)

	// positions 1..3 hold the three pieces; only the first is scored
	assert.Equal(t, []int64{MaskIgnore, MaskScore, MaskIgnore, MaskIgnore}, rec.LabelMask[:4])
	assert.Equal(t, []int64{startID, id, 0, 0}, rec.LabelIDs[:4])
}

func testEncoderTruncationBoundary(t *testing.T) {
	tok := parisTokenizer()
	vocab := labels.Build([][]string{{"O"}})
	oID, err := vocab.Index("O")
	require.NoError(t, err)
	startID, err := vocab.Index(labels.StartLabel)
	require.NoError(t, err)
	endID, err := vocab.Index(labels.EndLabel)
	require.NoError(t, err)

	opts := DefaultOptions(6) // room for 4 word pieces
	enc := NewEncoder(tok, vocab, opts)

	// exactly max - reserved pieces: no truncation, no padding
	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"a", "b", "c", "d"},
		Labels: []string{"O", "O", "O", "O"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 11, 12, 13, 14, 102}, rec.InputIDs)
	assert.Equal(t, []int64{MaskIgnore, 1, 1, 1, 1, MaskIgnore}, rec.LabelMask)

	// one piece longer: the final word's piece is dropped
	rec, err = enc.Encode(Example{
		GUID:   "tokens-2",
		Tokens: []string{"a", "b", "c", "d", "e"},
		Labels: []string{"O", "O", "O", "O", "O"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 11, 12, 13, 14, 102}, rec.InputIDs)
	assert.Equal(t, []int64{startID, oID, oID, oID, oID, endID}, rec.LabelIDs)
}

func testEncoderPadOnLeft(t *testing.T) {
	opts := DefaultOptions(8)
	opts.PadOnLeft = true
	enc := NewEncoder(parisTokenizer(), parisVocab(), opts)

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"is", "nice"},
		Labels: []string{"O", "O"},
	})
	require.NoError(t, err)

	// 4 real positions, 4 pad positions on the left
	assert.Equal(t, []int64{0, 0, 0, 0, 101, 7, 8, 102}, rec.InputIDs)
	assert.Equal(t, []int64{0, 0, 0, 0, 1, 1, 1, 1}, rec.AttentionMask)
	assert.Equal(t, []int64{0, 0, 0, 0, 1, 0, 0, 0}, rec.SegmentIDs)
	assert.Equal(t, []int64{0, 0, 0, 0, MaskIgnore, 1, 1, MaskIgnore}, rec.LabelMask)
}

func testEncoderClsTokenAtEnd(t *testing.T) {
	opts := DefaultOptions(8)
	opts.ClsTokenAtEnd = true
	vocab := parisVocab()
	enc := NewEncoder(parisTokenizer(), vocab, opts)

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"is", "nice"},
		Labels: []string{"O", "O"},
	})
	require.NoError(t, err)

	// is nice [SEP] [CLS] [PAD]...
	assert.Equal(t, []int64{7, 8, 102, 101, 0, 0, 0, 0}, rec.InputIDs)
	assert.Equal(t, []int64{0, 0, 0, 1, 0, 0, 0, 0}, rec.SegmentIDs)
	// the classifier token carries the neutral label, not <START>
	oID, err := vocab.Index("O")
	require.NoError(t, err)
	endID, err := vocab.Index(labels.EndLabel)
	require.NoError(t, err)
	assert.Equal(t, []int64{oID, oID, endID, 0, 0, 0, 0, 0}, rec.LabelIDs)
	assert.Equal(t, []int64{1, 1, MaskIgnore, MaskIgnore, 0, 0, 0, 0}, rec.LabelMask)
}

func testEncoderSepTokenExtra(t *testing.T) {
	opts := DefaultOptions(7) // reserved becomes 3, room for 4 pieces
	opts.SepTokenExtra = true
	enc := NewEncoder(parisTokenizer(), labels.Build([][]string{{"O"}}), opts)

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"a", "b", "c", "d", "e"},
		Labels: []string{"O", "O", "O", "O", "O"},
	})
	require.NoError(t, err)

	// truncated to 4 pieces, then [SEP] [SEP], then [CLS] in front
	assert.Equal(t, []int64{101, 11, 12, 13, 14, 102, 102}, rec.InputIDs)
	assert.Equal(t, []int64{MaskIgnore, 1, 1, 1, 1, MaskIgnore, MaskIgnore}, rec.LabelMask)
}

func testEncoderZeroPieceWordDropped(t *testing.T) {
	tok := newFakeTokenizer(
		map[string][]string{"​": {}}, // zero-width space yields no pieces
		map[string]int64{"[CLS]": 101, "[SEP]": 102, "is": 7, "nice": 8},
	)
	enc := NewEncoder(tok, parisVocab(), DefaultOptions(8))

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"is", "​", "nice"},
		Labels: []string{"O", "B-LOC", "O"},
	})
	require.NoError(t, err)

	// the dropped word contributes no token, label or mask entry
	assert.Equal(t, []int64{101, 7, 8, 102, 0, 0, 0, 0}, rec.InputIDs)
	assert.Equal(t, []int64{MaskIgnore, 1, 1, MaskIgnore, 0, 0, 0, 0}, rec.LabelMask)
}

func testEncoderNestedMode(t *testing.T) {
	// ['<PAD>', '<START>', 'B-LOC', 'B-ORG', 'O', '<END>']
	vocab := labels.Build([][]string{{"B-LOC", "B-ORG", "O"}})
	opts := DefaultOptions(6)
	opts.Nested = true
	enc := NewEncoder(parisTokenizer(), vocab, opts)

	rec, err := enc.Encode(Example{
		GUID:      "tokens-1",
		Tokens:    []string{"Paris", "is"},
		LabelSets: [][]string{{"B-LOC", "B-ORG"}, {"O"}},
	})
	require.NoError(t, err)
	require.NoError(t, rec.CheckLength(6, true))
	assert.Nil(t, rec.LabelIDs)

	// [CLS] carries the <START> one-hot at position 0 in nested mode too
	assert.Equal(t, []int64{0, 1, 0, 0, 0, 0}, rec.LabelVectors[0])
	// first piece of "Paris" is multi-hot over both labels
	assert.Equal(t, []int64{0, 0, 1, 1, 0, 0}, rec.LabelVectors[1])
	// continuation piece is all-zero
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0}, rec.LabelVectors[2])
	// "is"
	assert.Equal(t, []int64{0, 0, 0, 0, 1, 0}, rec.LabelVectors[3])
	// [SEP] carries the <END> one-hot
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 1}, rec.LabelVectors[4])
	// padding position is all-zero
	assert.Equal(t, []int64{0, 0, 0, 0, 0, 0}, rec.LabelVectors[5])

	assert.Equal(t, []int64{-100, 1, -100, 1, -100, 0}, rec.LabelMask)
}

func testEncoderMalformedExample(t *testing.T) {
	enc := NewEncoder(parisTokenizer(), parisVocab(), DefaultOptions(8))

	_, err := enc.Encode(Example{
		GUID:   "tokens-9",
		Tokens: []string{"Paris", "is"},
		Labels: []string{"B-LOC"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLabelMismatch)
	assert.Contains(t, err.Error(), "tokens-9")
}

func testEncoderUnknownLabel(t *testing.T) {
	enc := NewEncoder(parisTokenizer(), parisVocab(), DefaultOptions(8))

	_, err := enc.Encode(Example{
		GUID:   "tokens-4",
		Tokens: []string{"Paris"},
		Labels: []string{"B-MISC"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, labels.ErrUnknownLabel)
	assert.Contains(t, err.Error(), "tokens-4")
}

func testEncoderMaskPaddingFlipped(t *testing.T) {
	opts := DefaultOptions(6)
	opts.MaskPaddingWithZero = false
	enc := NewEncoder(parisTokenizer(), parisVocab(), opts)

	rec, err := enc.Encode(Example{
		GUID:   "tokens-1",
		Tokens: []string{"is"},
		Labels: []string{"O"},
	})
	require.NoError(t, err)

	// real positions are 0, padding positions are 1
	assert.Equal(t, []int64{0, 0, 0, 1, 1, 1}, rec.AttentionMask)
}

func BenchmarkEncoderEncode(b *testing.B) {
	enc := NewEncoder(parisTokenizer(), parisVocab(), DefaultOptions(128))
	ex := Example{
		GUID:   "tokens-1",
		Tokens: []string{"Paris", "is", "nice", "Paris", "is", "nice"},
		Labels: []string{"B-LOC", "O", "O", "B-LOC", "O", "O"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := enc.Encode(ex); err != nil {
			b.Fatal(err)
		}
	}
}
