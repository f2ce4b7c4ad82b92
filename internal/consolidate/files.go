package consolidate

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/atlas-esg/esia-review/internal/model"
)

// WriteResult writes a consolidation result as the _consolidated.json
// interchange file.
func WriteResult(path string, result model.ConsolidationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "consolidate: marshal result")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "consolidate: write %s", path)
	}
	return nil
}

// ReadResult reads a _consolidated.json interchange file.
func ReadResult(path string) (*model.ConsolidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "consolidate: read %s", path)
	}
	var result model.ConsolidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, eris.Wrapf(err, "consolidate: parse %s", path)
	}
	return &result, nil
}
