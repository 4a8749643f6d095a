package rpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCodec(t *testing.T) {
	c := Codec{}
	assert.Equal(t, "json", c.Name())
	assert.False(t, c.IsBinary())

	b, err := c.Marshal(&sample{Name: "veo", Count: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"veo","count":3}`, string(b))

	var out sample
	require.NoError(t, c.Unmarshal(b, &out))
	assert.Equal(t, sample{Name: "veo", Count: 3}, out)
}

func TestCodecEmptyBody(t *testing.T) {
	var out sample
	require.NoError(t, Codec{}.Unmarshal([]byte("  "), &out))
	assert.Equal(t, sample{}, out)
}

func TestCodecRejectsUnknownFields(t *testing.T) {
	var out sample
	err := Codec{}.Unmarshal([]byte(`{"name":"x","extra":1}`), &out)
	assert.Error(t, err)
}

func TestCharsetCodecSharesEncoding(t *testing.T) {
	c := CharsetCodec{}
	assert.Equal(t, "json; charset=utf-8", c.Name())

	var out sample
	require.NoError(t, c.Unmarshal([]byte(`{"name":"veo"}`), &out))
	assert.Equal(t, "veo", out.Name)
}

func TestBinaryCodecRejects(t *testing.T) {
	var out sample
	assert.ErrorIs(t, binaryCodec{}.Unmarshal([]byte{0x0a}, &out), ErrBinaryUnsupported)
	_, err := binaryCodec{}.Marshal(&out)
	assert.ErrorIs(t, err, ErrBinaryUnsupported)
}
