package incremental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256HasherKnownDigests(t *testing.T) {
	h := SHA256Hasher{}

	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		h.Hash(nil), "empty input")
	assert.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		h.Hash([]byte("abc")))
}

func TestSHA256HasherIsByteExact(t *testing.T) {
	h := SHA256Hasher{}

	a := h.Hash([]byte("# Title\n"))
	assert.Equal(t, a, h.Hash([]byte("# Title\n")))
	assert.NotEqual(t, a, h.Hash([]byte("# Title\r\n")), "line endings are significant")
	assert.NotEqual(t, a, h.Hash([]byte("# Title")), "trailing newline is significant")
}
