package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Len(t, Sum([]byte("Part Number,CMC Price\n")), 64)
}

func TestSumDiffersPerFile(t *testing.T) {
	a := []byte("Part Number,CMC Price,NCMC Price\nPN-1,10,20\n")
	b := []byte("Part Number,CMC Price,NCMC Price\nPN-1,10,21\n")
	assert.Equal(t, Sum(a), Sum(append([]byte(nil), a...)))
	assert.NotEqual(t, Sum(a), Sum(b))
}
