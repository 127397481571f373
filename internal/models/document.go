package models

// Extraction methods recorded on a Document.
const (
	MethodDirect = "direct"
	MethodOCR    = "ocr"
	MethodLoader = "loader"
)

// Document is the text extracted once from a source. It carries no page or
// paragraph structure.
type Document struct {
	Source string
	Text   string
	Method string
	Stats  TextStats
	// OCRPages and OCRFailedPages are set when the text came from OCR.
	OCRPages       int
	OCRFailedPages int
}

// TextStats are the figures the extraction gate judges direct text by.
type TextStats struct {
	Chars        int
	Words        int
	CharsPerWord float64
}

// Turn is one message of a conversation.
type Turn struct {
	Role string
	Text string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type PromptResponse struct {
	Query   string
	Context string
	Content string
}
