package codec

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	commonpb "go.temporal.io/api/common/v1"
	"go.temporal.io/sdk/converter"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	original, err := converter.GetDefaultDataConverter().ToPayload(map[string]string{"accountNumber": "BEN00000001"})
	require.NoError(t, err)

	sealed, err := c.Encode([]*commonpb.Payload{original})
	require.NoError(t, err)
	require.Len(t, sealed, 1)
	assert.Equal(t, MetadataEncodingEncrypted, string(sealed[0].Metadata[converter.MetadataEncoding]))
	assert.NotEqual(t, original.Data, sealed[0].Data)

	opened, err := c.Decode(sealed)
	require.NoError(t, err)
	require.Len(t, opened, 1)
	assert.Equal(t, original.Data, opened[0].Data)
	assert.Equal(t, original.Metadata, opened[0].Metadata)
}

func TestDecodePassesThroughUnencryptedPayloads(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	plain, err := converter.GetDefaultDataConverter().ToPayload("hello")
	require.NoError(t, err)

	out, err := c.Decode([]*commonpb.Payload{plain})
	require.NoError(t, err)
	assert.Same(t, plain, out[0])
}

func TestDecodeRejectsWrongKey(t *testing.T) {
	enc, err := New(testKey(t))
	require.NoError(t, err)
	dec, err := New(testKey(t))
	require.NoError(t, err)

	p, err := converter.GetDefaultDataConverter().ToPayload("secret")
	require.NoError(t, err)
	sealed, err := enc.Encode([]*commonpb.Payload{p})
	require.NoError(t, err)

	_, err = dec.Decode(sealed)
	assert.ErrorContains(t, err, "decrypt payload")
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}

func TestEncryptionDataConverterRoundTrip(t *testing.T) {
	dc, err := NewEncryptionDataConverter(testKey(t))
	require.NoError(t, err)

	type state struct {
		ProfileID     string `json:"profileId"`
		AccountNumber string `json:"accountNumber"`
	}
	in := state{ProfileID: "sub-1", AccountNumber: "PAY00000001"}

	payload, err := dc.ToPayload(in)
	require.NoError(t, err)
	assert.Equal(t, MetadataEncodingEncrypted, string(payload.Metadata[converter.MetadataEncoding]))

	var out state
	require.NoError(t, dc.FromPayload(payload, &out))
	assert.Equal(t, in, out)
}
