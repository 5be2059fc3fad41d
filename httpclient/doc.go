// Package httpclient is the HTTP transport shared by the provider adapters:
// transcript downloads, the Google Speech REST API and the whisper sidecar.
//
// Responses outside 2xx are mapped onto the error taxonomy in package
// errors, and connection failures become retryable INTERNAL_ERRORs, so the
// retry policy only has to look at AppError.Retryable.
//
//	client, err := httpclient.New(httpclient.ProviderConfig("google", baseURL),
//	    httpclient.WithTransport(oauthTransport))
//
//	op, err := httpclient.Post[operation](client, ctx, path, body,
//	    httpclient.WithRequestID(req.RequestID))
package httpclient
