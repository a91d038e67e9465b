// Package webhook exposes the dispatcher over HTTP.
//
// POST /v1/events accepts the same trigger event the Lambda runtime delivers
// and answers with the same {statusCode, body} envelope; the HTTP status
// mirrors statusCode. When a secret is configured the raw body must carry an
// HMAC-SHA256 signature in the configured header, either as "sha256=<hex>"
// or as bare hex. Verification uses a constant-time comparison and every
// failure is reported as a generic 403.
//
// GET /healthz reports liveness and GET /metrics serves Prometheus metrics.
package webhook
