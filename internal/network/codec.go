package network

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec сжимает и распаковывает тела сообщений (zstd).
// Один экземпляр на канал: используется только из игрового цикла.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	maxBody int
}

// NewCodec создаёт кодек. level — уровень zstd 1..22 (0 — по умолчанию),
// maxBody — предел распакованного тела.
func NewCodec(level, maxBody int) (*Codec, error) {
	encLevel := zstd.SpeedDefault
	if level > 0 {
		encLevel = zstd.EncoderLevelFromZstd(level)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if maxBody > 0 {
		limit := uint64(maxBody)
		if limit < 1<<20 {
			limit = 1 << 20
		}
		opts = append(opts, zstd.WithDecoderMaxMemory(limit))
	}
	decoder, err := zstd.NewReader(nil, opts...)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{encoder: encoder, decoder: decoder, maxBody: maxBody}, nil
}

// Compress сжимает тело сообщения
func (c *Codec) Compress(body []byte) []byte {
	return c.encoder.EncodeAll(body, make([]byte, 0, len(body)/2+16))
}

// Decompress распаковывает тело сообщения
func (c *Codec) Decompress(blob []byte) ([]byte, error) {
	body, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	if c.maxBody > 0 && len(body) > c.maxBody {
		return nil, fmt.Errorf("%w: body %d > %d", ErrMessageTooLarge, len(body), c.maxBody)
	}
	return body, nil
}

// Close освобождает ресурсы кодека
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
