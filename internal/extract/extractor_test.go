package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExtractor(t *testing.T) {
	dir := t.TempDir()
	extractor := NewTextExtractor()

	t.Run("plain text file", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("quarterly planning notes"), 0o644))

		result, err := extractor.Extract(path)
		require.NoError(t, err)
		assert.Equal(t, "quarterly planning notes", result.Text)
		assert.InDelta(t, 0.9, result.Confidence, 0.001)
	})

	t.Run("binary content yields empty result without error", func(t *testing.T) {
		path := filepath.Join(dir, "image.png")
		require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}, 0o644))

		result, err := extractor.Extract(path)
		require.NoError(t, err)
		assert.Empty(t, result.Text)
		assert.Zero(t, result.Confidence)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		result, err := extractor.Extract(path)
		require.NoError(t, err)
		assert.Empty(t, result.Text)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := extractor.Extract(filepath.Join(dir, "gone.txt"))
		require.Error(t, err)
	})

	t.Run("unknown extension with text content gets lower confidence", func(t *testing.T) {
		path := filepath.Join(dir, "data.xyz")
		require.NoError(t, os.WriteFile(path, []byte("plain enough"), 0o644))

		result, err := extractor.Extract(path)
		require.NoError(t, err)
		assert.Equal(t, "plain enough", result.Text)
		assert.InDelta(t, 0.6, result.Confidence, 0.001)
	})
}
