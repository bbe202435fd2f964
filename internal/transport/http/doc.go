// Package http contains the HTTP handlers for the analytics API. Handlers
// parse and validate request parameters, delegate to the service layer, and
// render responses with go-chi/render. Routing and middleware assembly live
// in internal/app.
package http
