package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foundergraph/enricher/internal/record"
)

// ArtifactPath returns where an identity's report lives. Its existence is the
// batch driver's resumability signal.
func ArtifactPath(outputDir string, id record.Identity) string {
	return filepath.Join(outputDir, id.Slug()+".md")
}

// ArtifactExists reports whether the identity's report was already written.
func ArtifactExists(outputDir string, id record.Identity) bool {
	_, err := os.Stat(ArtifactPath(outputDir, id))
	return err == nil
}

// WriteArtifact persists the rendered report atomically: the content lands in
// a temp file in the target directory and is renamed into place, so a crashed
// run never leaves a partial artifact behind to fool the resume check.
func WriteArtifact(outputDir string, id record.Identity, markdown string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	final := ArtifactPath(outputDir, id)
	tmp, err := os.CreateTemp(outputDir, id.Slug()+".md.tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(markdown); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return "", fmt.Errorf("finalize artifact: %w", err)
	}
	return final, nil
}

// WriteSidecar saves the raw enrichment result as JSON next to the cache dir,
// keyed by the same slug as the report. Best-effort diagnostics data; the
// caller may ignore failures.
func WriteSidecar(cacheDir string, res record.EnrichmentResult) (string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sidecar: %w", err)
	}
	path := filepath.Join(cacheDir, res.Identity.Slug()+"_raw.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return path, nil
}
