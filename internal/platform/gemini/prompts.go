package gemini

// Prompt templates are executed with text/template against promptData.
// Both instruct the model to answer with bare JSON matching the schemas in
// types.go; the response MIME type is also pinned to application/json.

const contentPromptTemplate = `You are an expert curriculum designer creating a {{.KindLabel}} for classroom use.

Topic: {{.Topic}}
{{- if .Subject}}
Subject: {{.Subject}}
{{- end}}
Grade level: {{.GradeLevel}}
Language: {{.Language}}
Number of sections: {{.SectionCount}}
{{- if .Standards}}
Aligned standards: {{range $i, $s := .Standards}}{{if $i}}, {{end}}{{$s}}{{end}}
{{- end}}
{{- if .Research}}

Ground every section in this topic synopsis so the material stays consistent
with companion resources generated from the same research:

Overview: {{.Research.Overview}}
{{- if .Research.CoreConcepts}}
Core concepts: {{range $i, $c := .Research.CoreConcepts}}{{if $i}}; {{end}}{{$c}}{{end}}
{{- end}}
{{- if .Research.KeyLearningPoints}}
Key learning points: {{range $i, $p := .Research.KeyLearningPoints}}{{if $i}}; {{end}}{{$p}}{{end}}
{{- end}}
{{- if .Research.Misconceptions}}
Common misconceptions to address: {{range $i, $m := .Research.Misconceptions}}{{if $i}}; {{end}}{{$m}}{{end}}
{{- end}}
{{- end}}

Respond with a single JSON object and nothing else, in this exact shape:
{"sections": [{"title": "...", "layout": "...", "content": ["...", "..."]}]}

Produce exactly {{.SectionCount}} sections. Each section needs a concise title,
a layout hint (one of: title, bullets, two_column, image_prompt), and 3-6
content lines written in {{.Language}} at a {{.GradeLevel}} reading level.`

const researchPromptTemplate = `You are a subject-matter researcher preparing a teaching synopsis.

Topic: {{.Topic}}
{{- if .Subject}}
Subject: {{.Subject}}
{{- end}}
Grade level: {{.GradeLevel}}
Language: {{.Language}}

Respond with a single JSON object and nothing else, in this exact shape:
{"overview": "...", "core_concepts": ["..."], "key_learning_points": ["..."], "examples": ["..."], "vocabulary": [{"term": "...", "definition": "..."}], "misconceptions": ["..."]}

The overview is 2-3 sentences. Provide 4-6 core concepts, 4-6 key learning
points, 2-4 concrete examples, 5-8 vocabulary terms with student-friendly
definitions, and 2-4 common misconceptions. Write everything in {{.Language}}
pitched at a {{.GradeLevel}} audience.`
