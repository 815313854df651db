// Package sandboxapi is the client side of the remote sandbox orchestration
// API.
//
// Client exposes the four operations the lifecycle needs: launch a sandbox
// from a blueprint, read its state, stop it, and read its activity feed.
// RESTClient implements it over HTTP:
//
//	PUT  /api/login                          → token
//	POST /api/v2/blueprints/{id}/start       {name, duration, params}
//	GET  /api/v2/sandboxes/{id}              {state, setup_stage}
//	POST /api/v2/sandboxes/{id}/stop
//	GET  /api/v2/sandboxes/{id}/activity     ?error_only=&from_event_id=
//
// Requests carry "Authorization: Basic <token>". Throttled responses (HTTP
// 429, or a body mentioning the rate quota) are returned as errors wrapping
// errors.ErrRateLimited; every other failure is a transport error.
//
// MockClient replays scripted state sequences for tests.
package sandboxapi
