// Package validation checks inbound transcription requests and service
// configuration before any remote call is made.
//
// Failures are BAD_REQUEST AppErrors whose details carry one entry per
// offending field.
//
// # Struct Tag Validation
//
//	type TranscriptionRequest struct {
//	    RequestID string `json:"request_id" validate:"required,max=200"`
//	    Format    string `json:"format" validate:"required,oneof=wav mp3 flac"`
//	}
//	err := validation.Validate(req.RequestID, req)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("bucket", cfg.Bucket).Range("channels", n, 1, 8)
//	if appErr := v.Validate(""); appErr != nil { ... }
package validation
