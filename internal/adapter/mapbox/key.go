package mapbox

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ErrNoAPIKey means the key file exists but its first line is blank.
var ErrNoAPIKey = errors.New("mapbox key file has no API key")

const tileURLFormat = "https://api.mapbox.com/styles/v1/%s/tiles/{z}/{x}/{y}?access_token=%s"

// ReadAPIKey returns the first line of the key file at path, trimmed.
func ReadAPIKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open mapbox key file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read mapbox key file: %w", err)
		}
		return "", ErrNoAPIKey
	}
	key := strings.TrimSpace(sc.Text())
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// TileURL returns the Leaflet raster tile template for a Mapbox style such
// as "mapbox/streets-v12".
func TileURL(style, token string) string {
	return fmt.Sprintf(tileURLFormat, style, url.QueryEscape(token))
}
