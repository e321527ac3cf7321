package mapbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"single line", "pk.abc123", "pk.abc123", nil},
		{"first line only", "pk.abc123\nsecond line\n", "pk.abc123", nil},
		{"trims whitespace", "  pk.abc123  \r\n", "pk.abc123", nil},
		{"empty file", "", "", ErrNoAPIKey},
		{"blank first line", "\npk.abc123\n", "", ErrNoAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mapbox_api.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := ReadAPIKey(path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadAPIKey_Missing(t *testing.T) {
	_, err := ReadAPIKey(filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTileURL(t *testing.T) {
	assert.Equal(t,
		"https://api.mapbox.com/styles/v1/mapbox/streets-v12/tiles/{z}/{x}/{y}?access_token=pk.abc",
		TileURL("mapbox/streets-v12", "pk.abc"))
}
