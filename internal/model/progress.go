package model

// ScanProgress tracks a folder's backlog scan. The zero value (Total == 0)
// is the idle sentinel published outside of scans.
type ScanProgress struct {
	CurrentFile string
	Processed   int
	Total       int
}

// IdleProgress is the sentinel published when no scan is running.
var IdleProgress = ScanProgress{}

// Idle reports whether no scan is in progress.
func (p ScanProgress) Idle() bool {
	return p.Total == 0
}
