// Package api contains the HTTP handlers for the job submission, status,
// and cancellation endpoints, along with the error-to-status mapping that
// keeps internal error details out of client responses.
package api
