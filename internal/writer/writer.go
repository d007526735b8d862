package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileWriter stores scrape payloads as JSON files in one directory.
type FileWriter struct {
	outputDir string
	now       func() time.Time
	create    func(path string) (io.WriteCloser, error)
}

// New creates a FileWriter, creating outputDir if needed.
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir, now: time.Now, create: createFile}, nil
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// Write encodes payload as indented JSON into a file named after entryURL
// and returns the file's path.
func (w *FileWriter) Write(entryURL string, payload any) (string, error) {
	name := fmt.Sprintf("%d_%s.json", w.now().UnixNano(), sanitizeFilename(entryURL))
	path := filepath.Join(w.outputDir, name)

	file, err := w.create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return path, nil
}

// sanitizeFilename turns a URL into host_path with unsafe characters replaced.
func sanitizeFilename(rawURL string) string {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Hostname()
		if p := strings.Trim(u.Path, "/"); p != "" {
			name += "_" + p
		}
	}
	name = strings.TrimPrefix(name, "www.")

	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range unsafe {
		name = strings.ReplaceAll(name, char, "_")
	}

	if name == "" {
		return "index"
	}
	return name
}
