package analysis

// Result is the structured outcome of a batch or continuous attribution run.
// The service boundary always returns a Result, never a raw failure.
type Result struct {
	Success             bool   `json:"success"`
	ImagesProcessed     int    `json:"images_processed"`
	AttributionsCreated int    `json:"attributions_created"`
	BatchesProcessed    int    `json:"batches_processed,omitempty"`
	Message             string `json:"message"`
	Error               string `json:"error,omitempty"`
}
