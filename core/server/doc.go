// Package server holds the HTTP server configuration.
//
// The serve command exposes the matcher over HTTP. Config defines the listen
// port, the API key checked by the auth middleware and the request body limit
// for candidate batches.
package server
