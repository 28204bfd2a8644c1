package common

import (
	"encoding/json"
	"os"
	"time"
)

// CIResult is the machine-readable envelope printed by every tool in --ci
// mode. CI pipelines parse it, so the field set is a compatibility contract.
type CIResult struct {
	OK        bool     `json:"ok"`
	Title     string   `json:"title"`
	Details   []string `json:"details,omitempty"`
	Error     string   `json:"error,omitempty"`
	Timestamp string   `json:"timestamp"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	result := CIResult{
		OK:        ok,
		Title:     title,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
