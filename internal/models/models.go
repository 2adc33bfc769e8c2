package models

// Page is the text of a single page of a source document
type Page struct {
	Text       string
	Source     string
	PageNumber int
}

// Chunk is a bounded window of page text, the unit indexed and retrieved
type Chunk struct {
	ID         string `yaml:"id" json:"id"`
	Text       string `yaml:"text" json:"text"`
	Source     string `yaml:"source" json:"source"`
	PageNumber int    `yaml:"page" json:"page"`
	Seq        int    `yaml:"seq" json:"seq"`
}

// Turn is one question/answer exchange kept in conversation memory
type Turn struct {
	Question string
	Answer   string
}

// Source is the transport-safe reference to a retrieved chunk
type Source struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Answer is the result of one pipeline invocation
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"source_documents"`
}

// BatchResult is a row of the batch mode output
type BatchResult struct {
	Question        string   `json:"question"`
	Answer          string   `json:"answer"`
	SourceDocuments []Source `json:"source_documents"`
	Error           string   `json:"error,omitempty"`
}
