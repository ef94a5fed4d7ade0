package gemini

// sectionSchema is the JSON shape of one content section in a Gemini response.
type sectionSchema struct {
	Title   string   `json:"title"`
	Layout  string   `json:"layout"`
	Content []string `json:"content"`
}

// contentSchema is the JSON shape of a structured content response.
type contentSchema struct {
	Sections []sectionSchema `json:"sections"`
}

// vocabularySchema is the JSON shape of one vocabulary term in a research response.
type vocabularySchema struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// researchSchema is the JSON shape of a topic research response.
type researchSchema struct {
	Overview          string             `json:"overview"`
	CoreConcepts      []string           `json:"core_concepts"`
	KeyLearningPoints []string           `json:"key_learning_points"`
	Examples          []string           `json:"examples"`
	Vocabulary        []vocabularySchema `json:"vocabulary"`
	Misconceptions    []string           `json:"misconceptions"`
}
