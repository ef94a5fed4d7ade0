// Package coordinator plans and executes the generation work for a job:
// single-path for one resource kind, multi-path fan-out with a shared
// research context for several. It owns the cache interaction and the
// quorum merge of per-kind outcomes.
package coordinator
