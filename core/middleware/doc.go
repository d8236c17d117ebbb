// Package middleware holds the fiber middleware mounted by `keymatch serve`.
//
//   - rayid: tags each request with an X-Ray-ID, reusing the caller's one
//     when present, and stores it in the fiber locals for logger.WithRayID.
//   - auth: rejects requests whose X-API-Key does not match server.api_key.
//     An empty key leaves the server open.
//
// The server mounts rayid first, then request logging and /metrics, then
// auth in front of the relation routes.
package middleware
