package embedding

// ONNXOptions configures the ONNX sentence embedder.
type ONNXOptions struct {
	ModelPath string
	// VocabPath is the model's vocab.txt; without it a hashing tokenizer is used.
	VocabPath  string
	Dimensions int
	MaxTokens  int
	// OutputName is the graph output to read.
	OutputName string
	// MeanPooling averages the per-token output (seq x dim) using the attention mask.
	// Disable it for exports whose output is already a pooled sentence vector.
	MeanPooling bool
}

func (o *ONNXOptions) applyDefaults() {
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 128
	}
	if o.OutputName == "" {
		if o.MeanPooling {
			o.OutputName = "last_hidden_state"
		} else {
			o.OutputName = "output"
		}
	}
}

// meanPool averages token vectors of hidden (seq x dim, row-major) where mask is set.
func meanPool(dst, hidden []float32, mask []int64) {
	dim := len(dst)
	var n float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dim : (tok+1)*dim]
		for i, v := range row {
			dst[i] += v
		}
		n++
	}
	if n == 0 {
		return
	}
	for i := range dst {
		dst[i] /= n
	}
}
