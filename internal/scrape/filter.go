package scrape

// KeepJobs returns the records whose description was actually extracted,
// dropping every record carrying the DescriptionUnavailable sentinel.
// Relative order is preserved and no other field is inspected.
func KeepJobs(jobs []JobRecord) []JobRecord {
	kept := make([]JobRecord, 0, len(jobs))
	for _, job := range jobs {
		if job.Description == DescriptionUnavailable {
			continue
		}
		kept = append(kept, job)
	}
	return kept
}
