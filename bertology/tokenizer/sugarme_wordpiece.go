package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sugarme/tokenizer/model/wordpiece"
)

const unkToken = "[UNK]"

// SugarWordPiece wraps sugarme/tokenizer WordPiece (BERT-style) behind the
// WordTokenizer capability. One instance per worker; see Factory.
type SugarWordPiece struct {
	wp wordpiece.WordPiece
}

// NewSugarWordPiece loads vocab.txt and builds a BERT WordPiece tokenizer
func NewSugarWordPiece(vocabPath string) (*SugarWordPiece, error) {
	// Prefer initializing WordPiece from a vocab file to avoid nil-map panics
	var wp wordpiece.WordPiece
	if fi, err := os.Stat(vocabPath); err == nil && !fi.IsDir() {
		if nw, err := wordpiece.NewWordPieceFromFile(vocabPath, unkToken); err == nil {
			wp = nw
		} else {
			builder := wordpiece.NewWordPieceBuilder().Files(vocabPath)
			wp = builder.Build()
		}
	} else {
		vocabFile := filepath.Join(vocabPath, "vocab.txt")
		if fi2, err := os.Stat(vocabFile); err == nil && !fi2.IsDir() {
			if nw, err := wordpiece.NewWordPieceFromFile(vocabFile, unkToken); err == nil {
				wp = nw
			} else {
				builder := wordpiece.NewWordPieceBuilder().Files(vocabFile)
				wp = builder.Build()
			}
		} else {
			// fallback: try builder directly with provided path
			builder := wordpiece.NewWordPieceBuilder().Files(vocabPath)
			wp = builder.Build()
		}
	}

	return &SugarWordPiece{wp: wp}, nil
}

// NewSugarWordPieceFactory returns a Factory that opens the vocab file once
// per call, giving every worker an isolated tokenizer instance.
func NewSugarWordPieceFactory(vocabPath string) Factory {
	return FactoryFunc(func() (WordTokenizer, error) {
		return NewSugarWordPiece(vocabPath)
	})
}

func (s *SugarWordPiece) TokenizeWord(word string) ([]string, error) {
	toks, err := s.wp.Tokenize(word)
	if err != nil {
		return nil, fmt.Errorf("wordpiece tokenize %q: %w", word, err)
	}
	pieces := make([]string, len(toks))
	for i, tok := range toks {
		pieces[i] = tok.Value
	}
	return pieces, nil
}

func (s *SugarWordPiece) ConvertTokensToIDs(tokens []string) ([]int64, error) {
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		id, ok := s.wp.TokenToId(tok)
		if !ok {
			// unknown pieces resolve through [UNK], matching BERT convention
			unkID, unkOK := s.wp.TokenToId(unkToken)
			if !unkOK {
				return nil, fmt.Errorf("token %q not in vocab and no %s entry", tok, unkToken)
			}
			id = unkID
		}
		ids[i] = int64(id)
	}
	return ids, nil
}

func (s *SugarWordPiece) ConvertIDsToTokens(ids []int64) []string {
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := s.wp.IdToToken(int(id))
		if !ok {
			tok = unkToken
		}
		tokens[i] = tok
	}
	return tokens
}
