package rpdextract

// Summary aggregates a batch of results.
type Summary struct {
	TotalFiles                   int      `json:"total_files"`
	SuccessfulFiles              int      `json:"successful_files"`
	FailedFiles                  int      `json:"failed_files"`
	SuccessRate                  float64  `json:"success_rate"`
	TotalProcessingTimeSeconds   float64  `json:"total_processing_time_seconds"`
	AverageProcessingTimeSeconds float64  `json:"average_processing_time_seconds"`
	Errors                       []string `json:"errors"`
	Warnings                     []string `json:"warnings"`
}

// Summarize totals results. Rates and averages are zero for an empty batch.
func Summarize(results []*ProcessResult) Summary {
	s := Summary{
		TotalFiles: len(results),
		Errors:     []string{},
		Warnings:   []string{},
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Success {
			s.SuccessfulFiles++
		}
		s.TotalProcessingTimeSeconds += r.ProcessingTimeSeconds
		s.Errors = append(s.Errors, r.Errors...)
		s.Warnings = append(s.Warnings, r.Warnings...)
	}
	s.FailedFiles = s.TotalFiles - s.SuccessfulFiles
	if s.TotalFiles > 0 {
		s.SuccessRate = float64(s.SuccessfulFiles) / float64(s.TotalFiles)
		s.AverageProcessingTimeSeconds = s.TotalProcessingTimeSeconds / float64(s.TotalFiles)
	}
	return s
}
