// Package generation defines the boundary interfaces between the
// orchestration core and external content-generation services, along with
// the error taxonomy used to classify their failures.
package generation
