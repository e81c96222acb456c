package vocab

import (
	"bytes"
	_ "embed"
)

//go:embed default.yaml
var defaultYAML []byte

// Default returns the built-in biomedical vocabulary.
func Default() *Vocabulary {
	v, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic("vocab: invalid built-in vocabulary: " + err.Error())
	}
	return v
}
