// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OCAP2/telestrator/pkg/core"
)

// fileName makes a video id safe to use as a file name
func fileName(videoID string, compress bool) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_").Replace(videoID)
	if compress {
		return name + ".json.gz"
	}
	return name + ".json"
}

// exportJSON writes one document file per video. Caller holds b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ids := make([]string, 0, len(b.videos))
	for id := range b.videos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		doc := core.AnnotationDocument{Annotations: b.videos[id].Annotations}
		if doc.Annotations == nil {
			doc.Annotations = []core.VideoAnnotation{}
		}
		path := filepath.Join(b.cfg.OutputDir, fileName(id, b.cfg.CompressOutput))
		if err := writeDocument(path, doc, b.cfg.CompressOutput); err != nil {
			return fmt.Errorf("export video %s: %w", id, err)
		}
	}
	return nil
}

func writeDocument(path string, doc core.AnnotationDocument, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}

	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}

// ReadDocument reads a document written by an export.
func ReadDocument(path string) (core.AnnotationDocument, error) {
	var doc core.AnnotationDocument

	f, err := os.Open(path)
	if err != nil {
		return doc, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return doc, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gzReader.Close()
		r = gzReader
	}

	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
