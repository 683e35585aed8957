package oracle

import "context"

// Prediction is the trend estimate for a token. HasPrice is false when no
// market data was available and Text carries the explanation instead.
type Prediction struct {
	Price    float64
	HasPrice bool
	Text     string
}

// Oracle answers price, prediction and signal lookups.
type Oracle interface {
	Price(ctx context.Context, symbol string) (float64, error)
	Predict(ctx context.Context, symbol string) (Prediction, error)
	Signal(ctx context.Context, symbol string) (string, error)
}
