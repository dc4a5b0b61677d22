package timing

// The duplicate index and the merged startlist view are recomputed from
// scratch after every mutation. Per-point logs stay in the hundreds, so
// the O(n) fold is cheaper than getting incremental updates right.

// Status of a startlist row at one timing point.
const (
	StatusFinished = "finished"
	StatusPending  = "pending"
)

// DuplicateCounts returns, for every start number with at least one live
// entry, the number of live entries carrying it.
func DuplicateCounts(entries []Entry) map[string]int {
	counts := make(map[string]int, len(entries))
	for _, e := range entries {
		counts[e.StartNumber]++
	}
	return counts
}

// Duplicates returns only the start numbers recorded more than once.
func Duplicates(entries []Entry) map[string]int {
	dups := map[string]int{}
	for number, n := range DuplicateCounts(entries) {
		if n > 1 {
			dups[number] = n
		}
	}
	return dups
}

// RowStatus is one startlist row joined with its timing status.
type RowStatus struct {
	StartlistRow
	Status string `json:"status"`
}

// MergedStartlist classifies every startlist row as finished, DNF, DNS or
// pending. A live entry wins over a stale DNF/DNS mark: the mark is not
// deleted, it just loses the display slot.
func MergedStartlist(rows []StartlistRow, entries []Entry, records []DnfDnsRecord) []RowStatus {
	finished := make(map[string]bool, len(entries))
	for _, e := range entries {
		finished[e.StartNumber] = true
	}
	marked := make(map[string]string, len(records))
	for _, r := range records {
		marked[r.StartNumber] = r.Type
	}

	out := make([]RowStatus, 0, len(rows))
	for _, row := range rows {
		status := StatusPending
		switch {
		case finished[row.StartNumber]:
			status = StatusFinished
		case marked[row.StartNumber] == StatusDNF:
			status = StatusDNF
		case marked[row.StartNumber] == StatusDNS:
			status = StatusDNS
		}
		out = append(out, RowStatus{StartlistRow: row, Status: status})
	}
	return out
}
