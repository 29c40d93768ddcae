// Package codec encrypts workflow payloads with AES-GCM so account and
// payment data never crosses the Temporal server in cleartext.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
)

const (
	// MetadataEncodingEncrypted marks payloads this codec has sealed.
	MetadataEncodingEncrypted = "binary/encrypted"
)

// Codec is a Temporal PayloadCodec that seals payloads with AES-GCM.
type Codec struct {
	aead cipher.AEAD
}

// New creates a Codec from a 16-, 24-, or 32-byte AES key.
func New(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode seals every payload.
func (c *Codec) Encode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	result := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		plain, err := p.Marshal()
		if err != nil {
			return payloads, fmt.Errorf("marshal payload: %w", err)
		}
		nonce := make([]byte, c.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return payloads, fmt.Errorf("generate nonce: %w", err)
		}
		sealed := c.aead.Seal(nonce, nonce, plain, nil)
		result[i] = &commonpb.Payload{
			Metadata: map[string][]byte{
				converter.MetadataEncoding: []byte(MetadataEncodingEncrypted),
			},
			Data: sealed,
		}
	}
	return result, nil
}

// Decode opens payloads sealed by Encode; payloads with any other encoding
// pass through untouched.
func (c *Codec) Decode(payloads []*commonpb.Payload) ([]*commonpb.Payload, error) {
	result := make([]*commonpb.Payload, len(payloads))
	for i, p := range payloads {
		if string(p.Metadata[converter.MetadataEncoding]) != MetadataEncodingEncrypted {
			result[i] = p
			continue
		}
		nonceSize := c.aead.NonceSize()
		if len(p.Data) < nonceSize {
			return payloads, errors.New("encrypted payload shorter than nonce")
		}
		plain, err := c.aead.Open(nil, p.Data[:nonceSize], p.Data[nonceSize:], nil)
		if err != nil {
			return payloads, fmt.Errorf("decrypt payload: %w", err)
		}
		result[i] = &commonpb.Payload{}
		if err := result[i].Unmarshal(plain); err != nil {
			return payloads, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	return result, nil
}

// NewEncryptionDataConverter wraps the default data converter with the
// encryption codec.
func NewEncryptionDataConverter(key []byte) (converter.DataConverter, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	return converter.NewCodecDataConverter(converter.GetDefaultDataConverter(), c), nil
}
