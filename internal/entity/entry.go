package entity

// Entry is one raw order text handed to the pipeline, typically a flattened email thread.
type Entry struct {
	EntryID string `json:"entry_id"`
	RawText string `json:"raw_text"`
	Subject string `json:"subject,omitempty"`
	From    string `json:"from,omitempty"`
}
