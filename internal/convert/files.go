package convert

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/config"
	"github.com/atlas-esg/esia-review/internal/model"
)

// WriteChunks writes chunks as JSONL, one chunk object per line.
func WriteChunks(path string, chunks []model.Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "convert: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, ch := range chunks {
		if err := enc.Encode(ch); err != nil {
			return eris.Wrapf(err, "convert: encode chunk %s", ch.ID)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "convert: flush %s", path)
	}
	return nil
}

// ReadChunks reads a JSONL chunk file written by WriteChunks.
func ReadChunks(path string) ([]model.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: open %s", path)
	}
	defer f.Close()

	var chunks []model.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ch model.Chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			return nil, eris.Wrapf(err, "convert: parse chunk line in %s", path)
		}
		chunks = append(chunks, ch)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "convert: scan %s", path)
	}
	return chunks, nil
}

// WriteMeta writes the document metadata sidecar.
func WriteMeta(path string, doc *model.Document, chunks []model.Chunk, cfg config.ChunkConfig) error {
	meta := model.DocumentMeta{
		Path:          doc.Path,
		Title:         doc.Title,
		Format:        doc.Format,
		Converter:     doc.Converter,
		Pages:         doc.PageCount(),
		Chunks:        len(chunks),
		Checksum:      doc.Checksum,
		MaxChunkToken: cfg.MaxTokens,
		OverlapTokens: cfg.OverlapTokens,
		ConvertedAt:   doc.ConvertedAt,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "convert: marshal meta")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "convert: write %s", path)
	}
	return nil
}

// ReadMeta reads a document metadata sidecar.
func ReadMeta(path string) (*model.DocumentMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "convert: read %s", path)
	}
	var meta model.DocumentMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, eris.Wrapf(err, "convert: parse %s", path)
	}
	return &meta, nil
}
