package tokenizer

import (
	"fmt"
)

// WordTokenizer is the subword capability consumed by the feature encoder.
// Implementations split one word into subword pieces and resolve pieces to
// vocabulary ids. The encoder is agnostic to the concrete implementation.
type WordTokenizer interface {
	// TokenizeWord splits a single word into subword pieces. A zero-length
	// result is valid and means the word contributes nothing to the output.
	TokenizeWord(word string) ([]string, error)
	// ConvertTokensToIDs resolves subword pieces to vocabulary ids.
	ConvertTokensToIDs(tokens []string) ([]int64, error)
	// ConvertIDsToTokens is the reverse mapping, used for diagnostics only.
	ConvertIDsToTokens(ids []int64) []string
}

// Factory builds tokenizer instances. Workers encoding examples concurrently
// each construct their own instance: tokenizers are not assumed safe to share
// across concurrent callers.
type Factory interface {
	New() (WordTokenizer, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func() (WordTokenizer, error)

func (f FactoryFunc) New() (WordTokenizer, error) { return f() }

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = fmt.Errorf("unsupported tokenizer configuration")
