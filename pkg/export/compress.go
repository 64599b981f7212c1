package export

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressed zstd-compresses uploads before passing them to Next.
type Compressed struct {
	Next    Uploader
	encoder *zstd.Encoder
}

// NewCompressed wraps next.
func NewCompressed(next Uploader) (*Compressed, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Compressed{Next: next, encoder: encoder}, nil
}

// Upload compresses data and uploads it as name.zst.
func (c *Compressed) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	return c.Next.Upload(ctx, compressed, name+".zst", folder)
}

// Close releases the encoder.
func (c *Compressed) Close() error {
	return c.encoder.Close()
}
