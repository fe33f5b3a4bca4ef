package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zpeng1989/bertology-sklearn/bertology/features"
)

// tokenSample is one JSONL corpus line: parallel word and tag arrays.
type tokenSample struct {
	Tokens []string   `json:"tokens"`
	Tags   []string   `json:"tags,omitempty"`
	TagSet [][]string `json:"tag_sets,omitempty"`
}

// ReadJSONL loads a corpus file with one JSON object per line, each carrying
// "tokens" plus either "tags" (single-label) or "tag_sets" (nested). Examples
// are validated on load so malformed lines surface with their line number.
func ReadJSONL(path string, nested bool) ([]features.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var examples []features.Example
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var sample tokenSample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}

		ex := features.Example{
			GUID:   fmt.Sprintf("tokens-%d", len(examples)+1),
			Tokens: sample.Tokens,
		}
		if nested {
			ex.LabelSets = sample.TagSet
		} else {
			ex.Labels = sample.Tags
		}
		if err := ex.Validate(nested); err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}
		examples = append(examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return examples, nil
}
