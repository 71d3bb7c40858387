package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult summarizes a chain verification pass.
type VerifyResult struct {
	Entries   int    `json:"entries"`
	Valid     bool   `json:"valid"`
	BrokenAt  int    `json:"broken_at,omitempty"` // 1-based line number
	BrokenMsg string `json:"broken_msg,omitempty"`
}

// Verify walks the audit log and checks that every entry's prev_hash
// matches the hash of the preceding line.
func Verify(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &VerifyResult{Valid: true}
	prevHash := GenesisHash

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			result.Valid = false
			result.BrokenAt = lineNo
			result.BrokenMsg = fmt.Sprintf("malformed entry: %v", err)
			return result, nil
		}

		if entry.PrevHash != prevHash {
			result.Valid = false
			result.BrokenAt = lineNo
			result.BrokenMsg = fmt.Sprintf("chain break: expected prev_hash %s, got %s", prevHash, entry.PrevHash)
			return result, nil
		}

		prevHash = HashLine(append([]byte(nil), line...))
		result.Entries++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}
	return result, nil
}
