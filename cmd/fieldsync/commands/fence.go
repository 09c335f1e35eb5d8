package commands

import (
	"os"
	"strings"

	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

// readFence parses a project fence given inline as JSON or as @path to a JSON file.
func readFence(arg string) (domain.GeoFenceSpec, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		raw, err := os.ReadFile(path) //nolint:gosec // path is provided by user
		if err != nil {
			return domain.GeoFenceSpec{}, zerr.With(zerr.Wrap(err, "failed to read fence file"), "path", path)
		}
		data = raw
	}
	return domain.ParseProjectFence(data)
}
