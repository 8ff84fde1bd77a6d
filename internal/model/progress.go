package model

type TransferState string

const (
	TransferPending  TransferState = "PENDING"
	TransferRunning  TransferState = "RUNNING"
	TransferComplete TransferState = "COMPLETE"
	TransferFailed   TransferState = "FAILED"
)

type ProgressRecord struct {
	Percent int           `json:"percent"`
	Bytes   int64         `json:"bytes"`
	Total   int64         `json:"total"`
	State   TransferState `json:"state"`
	Err     string        `json:"error,omitempty"`
}

func (r ProgressRecord) Finished() bool {
	return r.State == TransferComplete || r.State == TransferFailed
}
