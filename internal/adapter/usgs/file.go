package usgs

import (
	"context"
	"fmt"
	"os"

	"github.com/couchcryptid/quake-map/internal/domain"
)

// FileSource replays a saved feed from disk, for offline snapshots and tests.
type FileSource struct {
	Path string
}

func (s FileSource) FetchFeatures(_ context.Context) (domain.Feed, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
