package http

// PromptRequest carries an edit instruction.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// ShareResponse is the caption and link set used by the share button.
type ShareResponse struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	FallbackURL string `json:"fallbackUrl"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
