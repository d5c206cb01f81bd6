package main

// CLIResult is the top-level JSON envelope for all query and mutation
// commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

func count(n int) *int { return &n }
