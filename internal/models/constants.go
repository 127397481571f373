package models

const (
	ContextSeparator = "\n\n"

	// shown to the user in place of document content
	NoTextMessage          = "Could not extract text from this document."
	ProcessingErrorMessage = "Error processing the document."
)

var (
	SystemPromptTemplate = `You are a friendly assistant called Oracle.

{{.context}}

Use the information provided to ground your answers.
If the information is not in the sections provided, say that other parts of the document need to be consulted.

CONVERSATION HISTORY:
{{.chat_history}}`

	UserPromptTemplate = `{{.input}}`
)
