// Package server hosts the transcription API over HTTP using Gin, with
// cleartext HTTP/2 support for clients that stream large uploads.
//
// The middleware stack (server/middleware) runs at the handler level:
// recovery, request id, request logging, CORS, body-size limit and an
// optional per-client token bucket. Health endpoints (server/endpoint)
// report component health and the build version.
//
//	srv := server.New(cfg.Server, log)
//	srv.ApplyDefaults("transcribe", registry.HealthAll)
//	srv.GinEngine().POST("/v1/transcriptions", h.Transcribe)
package server
