package mantadmin

import "context"

// TextEmbedder converts texts to vectors with the named model.
// An empty model selects the provider default. Results follow input order.
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// TextEmbedderFunc adapts a function to TextEmbedder.
type TextEmbedderFunc func(ctx context.Context, model string, texts []string) ([][]float32, error)

// EmbedTexts calls f.
func (f TextEmbedderFunc) EmbedTexts(ctx context.Context, model string, texts []string) ([][]float32, error) {
	return f(ctx, model, texts)
}
