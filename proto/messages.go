package proto

// Wire messages for the PayrollFlight service. Tickets and frames
// travel as JSON (see codec.go), matching the clients already in the
// field, so these are plain structs rather than protoc output.

// PutDescriptor opens an upload stream: who is sending, and under what
// filename the snapshot will be kept.
type PutDescriptor struct {
	ClientID string `json:"client_id"`
	Password string `json:"password"`
	Filename string `json:"filename"`
}

// PutFrame is one frame of the client upload stream. The first frame
// must carry the descriptor; subsequent frames carry rows. The header
// rides on the first row-bearing frame.
type PutFrame struct {
	Descriptor *PutDescriptor `json:"descriptor,omitempty"`
	Header     []string       `json:"header,omitempty"`
	Rows       [][]string     `json:"rows,omitempty"`
}

// PutResult closes an upload stream.
type PutResult struct {
	Store string `json:"store"`
	Rows  int    `json:"rows"`
}

// Ticket is the structured request of a Get call.
type Ticket struct {
	Action          string `json:"action"`
	ClientID        string `json:"client_id"`
	Password        string `json:"password"`
	TargetFile      string `json:"target_file"`
	SaveToDownloads bool   `json:"save_to_downloads,omitempty"`
}

// RecordBatch is one frame of a Get reply stream. Columns ride on the
// first batch only.
type RecordBatch struct {
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows"`
}

// ActionRequest is the small structured body of a Do call.
type ActionRequest struct {
	Name     string `json:"name"`
	ClientID string `json:"client_id"`
	Password string `json:"password"`
}

// ActionResult is the reply of a Do call.
type ActionResult struct {
	Success    bool     `json:"success"`
	RawFiles   []string `json:"raw_files"`
	CleanFiles []string `json:"clean_files"`
}
