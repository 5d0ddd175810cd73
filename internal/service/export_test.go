package service

// SetRunRetention overrides how many finished runs svc keeps in memory.
func SetRunRetention(svc IngestService, n int) {
	s := svc.(*ingestService)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxFinished = n
}

// TrackedRuns returns the number of documents svc holds run state for.
func TrackedRuns(svc IngestService) int {
	s := svc.(*ingestService)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
