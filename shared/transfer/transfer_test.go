package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadSizes(t *testing.T) {
	c := NewConfig()
	c.Framing = "raw"
	assert.Equal(t, 1024, c.MetadataReadSize())
	assert.Equal(t, 1034, c.FrameReadSize())
	assert.Equal(t, 10, c.AckReadSize())

	c.Framing = "length"
	assert.Greater(t, c.FrameReadSize(), c.ChunkSize+10)
	assert.Greater(t, c.AckReadSize(), 10)
}

func TestSendsNaks(t *testing.T) {
	c := NewConfig()
	assert.True(t, c.SendsNaks())
	c.Framing = "raw"
	assert.False(t, c.SendsNaks())
	c.Framing = "length"
	c.NegativeAcks = false
	assert.False(t, c.SendsNaks())
}
