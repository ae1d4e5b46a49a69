package reporting

import "autodialer/internal/calls"

// Statistics aggregates the call log for the queue dashboard.
//
// An entry with an error counts as failed whatever its status. Busy and
// no-answer are reported separately and are not failures.
type Statistics struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Busy       int `json:"busy"`
	NoAnswer   int `json:"no_answer"`
	Failed     int `json:"failed"`
	InProgress int `json:"in_progress"`
}

type QueueReport struct {
	Statistics  Statistics           `json:"statistics"`
	RecentCalls []calls.CallLogEntry `json:"recent_calls"`
}

// ChatSummary is the shorter view answered to "show logs" commands.
type ChatSummary struct {
	TotalCalls      int `json:"total_calls"`
	SuccessfulCalls int `json:"successful_calls"`
	FailedCalls     int `json:"failed_calls"`
	InProgressCalls int `json:"in_progress_calls"`
}

type ChatReport struct {
	Summary    ChatSummary          `json:"summary"`
	RecentLogs []calls.CallLogEntry `json:"recent_logs"`
}
