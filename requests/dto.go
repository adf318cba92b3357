package requests

// EchoRequestDTO is the optional JSON body of POST /echo/:file.
// Query parameters of the same name take precedence.
type EchoRequestDTO struct {
	Text   *string `json:"text,omitempty"`
	Delete *bool   `json:"delete,omitempty"`
}

// MessageResponse acknowledges a successful mutation
type MessageResponse struct {
	Message string `json:"message"`
}

// ListResponse is returned by GET /ls
type ListResponse struct {
	Contents []string `json:"contents"`
	Detail   string   `json:"detail,omitempty"` // set when the path could not be listed
}

// CatResponse is returned by GET /cat/:file
type CatResponse struct {
	Contents string `json:"contents"`
}

// GrepResponse is returned by POST /grep/:file/:pattern
type GrepResponse struct {
	MatchingLines []string `json:"matching_lines"`
	Detail        string   `json:"detail,omitempty"`
}

// PwdResponse is returned by GET /pwd
type PwdResponse struct {
	CurrentDirectory string `json:"current_directory"`
}

// FindResponse is returned by GET /find
type FindResponse struct {
	Paths []string `json:"paths"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Detail string `json:"detail"`
}
