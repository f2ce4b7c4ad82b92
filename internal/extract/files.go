package extract

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

// WriteFacts writes extraction results as the _facts.json interchange file.
func WriteFacts(path string, occurrences []model.FactOccurrence) error {
	data, err := json.MarshalIndent(occurrences, "", "  ")
	if err != nil {
		return eris.Wrap(err, "extract: marshal facts")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "extract: write %s", path)
	}
	return nil
}

// ReadFacts reads a _facts.json interchange file.
func ReadFacts(path string) ([]model.FactOccurrence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read %s", path)
	}
	var occurrences []model.FactOccurrence
	if err := json.Unmarshal(data, &occurrences); err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s", path)
	}
	return occurrences, nil
}

// WriteDeadLetters appends failed chunks to a JSONL dead letter file so a
// later run can retry just those chunks.
func WriteDeadLetters(path string, entries []DeadLetter) error {
	if len(entries) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return eris.Wrapf(err, "extract: encode dead letter %s", entry.ChunkID)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "extract: flush %s", path)
	}
	return nil
}
