// Package progress persists a resume marker for long translation runs.
//
// The marker is a small JSON file colocated with the output catalog
// (<output>.progress) holding the count of entries translated so far. It
// is advisory only: the partially written catalog remains the source of
// truth for which entries already carry a translation. A marker left
// behind after a run signals an interrupted run available for resume;
// clean completion removes it.
package progress

import (
	"encoding/json"
	"os"
)

// Suffix appended to the output path to form the marker path.
const Suffix = ".progress"

// marker is the on-disk shape of the progress file.
type marker struct {
	Translated int `json:"translated"`
}

// Path returns the marker file path for an output catalog path.
func Path(outputPath string) string {
	return outputPath + Suffix
}

// Load returns the checkpoint count for an output target. A missing,
// unreadable, or corrupt marker reads as 0 — a run can always start
// from scratch.
func Load(outputPath string) int {
	data, err := os.ReadFile(Path(outputPath))
	if err != nil {
		return 0
	}
	var m marker
	if err := json.Unmarshal(data, &m); err != nil || m.Translated < 0 {
		return 0
	}
	return m.Translated
}

// Save checkpoints the count of translated entries for an output target.
func Save(outputPath string, count int) error {
	data, err := json.Marshal(marker{Translated: count})
	if err != nil {
		return err
	}
	return os.WriteFile(Path(outputPath), data, 0644)
}

// Clear removes the marker. A missing marker is not an error.
func Clear(outputPath string) error {
	err := os.Remove(Path(outputPath))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
