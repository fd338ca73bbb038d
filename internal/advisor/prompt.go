package advisor

import (
	"errors"
	"os"

	"go.uber.org/zap"
)

// LoadSystemPrompt reads the system prompt at path. A missing file yields an
// empty prompt and a warning; other read errors are returned.
func LoadSystemPrompt(path string, logger *zap.Logger) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if logger != nil {
				logger.Warn("system prompt not found", zap.String("path", path))
			}
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
