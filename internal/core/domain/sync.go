package domain

import "encoding/json"

// BatchRequest is the body sent to the server's batch sync endpoint.
// Each list holds record payloads with clientId set to the correlation ID.
type BatchRequest struct {
	ProgressReports  []json.RawMessage `json:"progressReports,omitempty"`
	AttendanceEvents []json.RawMessage `json:"attendanceEvents,omitempty"`
	MaterialRequests []json.RawMessage `json:"materialRequests,omitempty"`
}

// Add appends a payload to the list for kind.
func (b *BatchRequest) Add(kind RecordKind, payload json.RawMessage) {
	switch kind {
	case KindProgressReport:
		b.ProgressReports = append(b.ProgressReports, payload)
	case KindAttendanceEvent:
		b.AttendanceEvents = append(b.AttendanceEvents, payload)
	case KindMaterialRequest:
		b.MaterialRequests = append(b.MaterialRequests, payload)
	}
}

// Len returns the total number of records in the batch.
func (b *BatchRequest) Len() int {
	return len(b.ProgressReports) + len(b.AttendanceEvents) + len(b.MaterialRequests)
}

// BatchResult lists the correlation IDs the server accepted, per kind.
type BatchResult struct {
	ProgressReports  []string `json:"progressReports"`
	AttendanceEvents []string `json:"attendanceEvents"`
	MaterialRequests []string `json:"materialRequests"`
}

// Accepted returns every accepted ID as a set.
func (r *BatchResult) Accepted() map[string]struct{} {
	set := make(map[string]struct{}, len(r.ProgressReports)+len(r.AttendanceEvents)+len(r.MaterialRequests))
	for _, list := range [][]string{r.ProgressReports, r.AttendanceEvents, r.MaterialRequests} {
		for _, id := range list {
			set[id] = struct{}{}
		}
	}
	return set
}

// SyncReport summarises one reconciler run.
type SyncReport struct {
	Submitted  int            `json:"submitted"`
	Delivered  int            `json:"delivered"`
	Requeued   int            `json:"requeued"`
	Failed     int            `json:"failed"`
	Recovered  int            `json:"recovered"`
	ByKind     map[string]int `json:"byKind,omitempty"`
	WillRetry  bool           `json:"willRetry"`
	LastError  string         `json:"lastError,omitempty"`
	FailedIDs  []string       `json:"failedIds,omitempty"`
	DurationMS int64          `json:"durationMs"`
}
