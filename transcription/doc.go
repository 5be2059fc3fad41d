// Package transcription runs speech-to-text requests against a remote
// provider as a saga: validate the request, resolve any earlier job with
// the same request id, stage the audio, provision a custom vocabulary,
// submit the job, poll it, fetch the transcript, and release the staged
// object and vocabulary on every exit path.
//
// Providers plug in as a Backend, a set of optional capabilities. Batch
// providers supply Objects and Jobs; synchronous ones supply a Recognizer.
// Backend packages register themselves by name:
//
//	import _ "github.com/kbukum/transcribe/transcription/aws"
//
//	backend, err := transcription.NewBackend(ctx, "aws", transcription.BackendOptions{
//	    Settings: &awsCfg,
//	    Objects:  store,
//	    Log:      log,
//	})
//	saga, err := transcription.NewSaga(backend, cfg, transcription.WithLogger(log))
//	resp, err := saga.Transcribe(ctx, req)
//
// Every remote artifact is named after the request id, so a re-invoked
// request resumes a running job instead of starting a second one. Side
// effects can also be recorded in a Journal so that a crashed invocation
// replays them.
package transcription
