package models

const (
	ParagraphSplitRegex = `\n\s*\n`
	SentenceEndRegex    = `[.!?]+\s+`
	HeaderRegex         = `(?m)^[\d\w\s]*[:\-]\s*`
	MarkdownHeaderRegex = `(?m)^#{1,6}\s+\S`
	TableSpacingRegex   = `\s{3,}`
	ThinkTag            = `(?s)<think>.*?</think>`
	ContextSeparator    = "\n"
	PartSeparator       = "\n\n"
)

// SummaryInstructions holds the type-specific instruction inserted into prompts.
var SummaryInstructions = map[SummaryType]string{
	SummaryGeneral:      "Write a concise, coherent summary covering the main ideas.",
	SummaryBulletPoints: "Summarize as a list of bullet points, one key point per line starting with \"- \".",
	SummaryKeyInsights:  "Extract the key insights, findings and conclusions as short numbered statements.",
	SummaryExecutive:    "Write an executive summary: purpose, key findings, implications and recommended actions.",
	SummaryDetailed:     "Write a detailed summary that keeps important facts, figures, names and the structure of the argument.",
}

var (
	ChunkPromptTemplate = `You are summarizing part {{.part}} of {{.total}} of a longer document.
{{.instruction}}
Respond in {{.language}}. Use about {{.words}} words.
{{- if .has_headers}}
This part contains section headings; keep the section structure visible.
{{- end}}
{{- if .has_tables}}
This part contains tabular data; report the important values, not the layout.
{{- end}}
{{- if .context}}

Context from neighbouring parts (do not summarize it, use it only for continuity):
{{.context}}
{{- end}}

<content>
{{.content}}
</content>

Summary:`

	DirectPromptTemplate = `{{.instruction}}
Respond in {{.language}}. Use at most {{.words}} words.

<content>
{{.content}}
</content>

Summary:`

	ReducePromptTemplate = `Below are summaries of {{.parts}} consecutive parts of one document ({{.original_length}} characters in total).
Merge them into a single {{.summary_type}} summary of at most {{.words}} words in {{.language}}.
{{.instruction}}
Remove repetitions between parts, keep the original order of ideas and do not mention the parts themselves.

{{.summaries}}

Final summary:`

	// AllChunksFailedMessage is returned when no chunk produced a summary.
	AllChunksFailedMessage = "Unable to create summary: all parts of the document failed to summarize."
)
