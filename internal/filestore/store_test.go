package filestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koustreak/tabula/internal/errs"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"report.pdf", "images/2024/photo.jpg", "a..b/c", "dir/file.tar.gz"} {
		assert.NoError(t, ValidateKey(key), key)
	}

	for _, key := range []string{"", "../etc/passwd", "a/../../b", "a/./b", "/abs", `win\path`, "nul\x00byte", strings.Repeat("k", MaxKeyLength+1)} {
		err := ValidateKey(key)
		assert.True(t, errs.IsValidation(err), "%q: %v", key, err)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("localhost:9000", "ak", "sk", "downloads")
	assert.True(t, cfg.Enabled())
	assert.NoError(t, cfg.Validate())

	assert.False(t, (&Config{}).Enabled())
	assert.True(t, errs.IsConfig((&Config{Endpoint: "x"}).Validate()))
	assert.True(t, errs.IsConfig((&Config{Endpoint: "x", Bucket: "b", Provider: "s3"}).Validate()))
}
