package targets

import (
	"encoding/json"
	"fmt"
	"os"
)

// SnapshotFromFile reads a supervisor-written snapshot: a JSON object of
// target name → raw state. A missing file yields an empty snapshot, which
// reports every target as missing.
func SnapshotFromFile(path string) (map[string]Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Raw{}, nil
		}
		return nil, fmt.Errorf("read target snapshot: %w", err)
	}

	var snapshot map[string]Raw
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse target snapshot: %w", err)
	}
	return snapshot, nil
}
