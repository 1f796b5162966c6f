// Package urls centralizes the external URLs ptzlink talks to or prints.
//
// Keeping them in one place makes it easy to update vendor endpoints
// without touching the session code.
package urls
