package restore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/restitch/restitch/pkg/errors"
)

// decompiledSuffix marks files produced by the decompiler. Restored output
// drops the marker so the tree ends up with plain source extensions.
const decompiledSuffix = ".unluac"

// Writer places restored files under an output directory, mirroring the
// layout of the source tree.
type Writer struct {
	outDir string
}

// NewWriter creates a writer rooted at outDir. The directory is created on
// first write, not here.
func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// Write stores restored content for the given source-relative path and
// returns the path it wrote. A trailing ".unluac" marker is stripped, so
// "controller/admin.lua.unluac" lands at "controller/admin.lua".
func (w *Writer) Write(relPath, content string) (string, error) {
	out := filepath.Join(w.outDir, filepath.FromSlash(OutputName(relPath)))
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeWriteError, err, "create output directory for %s", relPath)
	}
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		return "", errors.Wrap(errors.ErrCodeWriteError, err, "write %s", out)
	}
	return out, nil
}

// OutputName maps a source-relative path to its restored name.
func OutputName(relPath string) string {
	return strings.TrimSuffix(relPath, decompiledSuffix)
}
