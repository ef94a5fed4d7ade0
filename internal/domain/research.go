package domain

// VocabularyTerm is one entry of the research vocabulary list.
type VocabularyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// ResearchContext is a structured synopsis of a topic, built once per
// multi-path job and shared read-only by every sub-task spawned under it so
// that the generated resources stay mutually consistent. It is ephemeral:
// constructed and frozen before any sub-task starts, never persisted, and
// discarded with the job.
type ResearchContext struct {
	Topic             string           `json:"topic"`
	Overview          string           `json:"overview"`
	CoreConcepts      []string         `json:"core_concepts"`
	KeyLearningPoints []string         `json:"key_learning_points"`
	Examples          []string         `json:"examples"`
	Vocabulary        []VocabularyTerm `json:"vocabulary"`
	Misconceptions    []string         `json:"misconceptions"`
}
