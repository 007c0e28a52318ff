package domain

// TTLMismatch is a record present on both servers with differing TTLs.
type TTLMismatch struct {
	Key          RecordKey `json:"key" yaml:"key"`
	CurrentTTL   uint32    `json:"current_ttl" yaml:"current_ttl"`
	CandidateTTL uint32    `json:"candidate_ttl" yaml:"candidate_ttl"`
}

// DiffResult classifies the differences between a current and a candidate snapshot.
// Every key of either snapshot lands in at most one of the three collections;
// keys absent from all three are identical on both servers.
type DiffResult struct {
	// Missing holds records served by the current server but not the candidate.
	Missing []Record `json:"missing" yaml:"missing"`
	// Extra holds records served by the candidate but not the current server.
	Extra []Record `json:"extra" yaml:"extra"`
	// TTLMismatches holds records on both servers whose TTLs differ.
	TTLMismatches []TTLMismatch `json:"ttl_mismatches" yaml:"ttl_mismatches"`
}

// Identical returns true when no differences were found.
func (d DiffResult) Identical() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.TTLMismatches) == 0
}

// Count returns the total number of reported differences.
func (d DiffResult) Count() int {
	return len(d.Missing) + len(d.Extra) + len(d.TTLMismatches)
}
