// Package gemini implements the generation.ContentGenerator and
// generation.ResearchProvider interfaces using Google's Gemini API.
// Calls are retried with exponential backoff and jitter for transient
// failures; safety blocks and malformed responses fail immediately.
package gemini
