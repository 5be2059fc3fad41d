package awsclient

import (
	"context"
	stderrors "errors"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/kbukum/transcribe/errors"
)

// apiCodes maps service error codes whose HTTP status is ambiguous.
// Transcribe returns 400 for throttling and for missing resources alike.
var apiCodes = map[string]func(requestID, msg string) *errors.AppError{
	"AccessDeniedException":    errors.AccessDenied,
	"AccessDenied":             errors.AccessDenied,
	"LimitExceededException":   errors.RateLimit,
	"ThrottlingException":      errors.RateLimit,
	"TooManyRequestsException": errors.RateLimit,
	"SlowDown":                 errors.RateLimit,
	"NotFoundException":        errors.NotFound,
	"NotFound":                 errors.NotFound,
	"NoSuchKey":                errors.NotFound,
	"NoSuchBucket":             errors.NotFound,
	"ConflictException":        errors.Conflict,
	"BadRequestException":      errors.BadRequest,
	"InternalFailureException": errors.InternalServerError,
}

// Classify converts an SDK error into a taxonomy error tagged with
// requestID. Context cancellation and AppErrors pass through unchanged.
func Classify(requestID string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	msg := err.Error()
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		msg = apiErr.ErrorMessage()
		if msg == "" {
			msg = apiErr.ErrorCode()
		}
		if ctor, ok := apiCodes[apiErr.ErrorCode()]; ok {
			return ctor(requestID, msg).WithCause(err)
		}
	}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		return errors.FromHTTPStatus(respErr.HTTPStatusCode(), requestID, msg).WithCause(err)
	}
	if apiErr != nil && apiErr.ErrorFault() == smithy.FaultClient {
		return errors.BadRequest(requestID, msg).WithCause(err)
	}
	// No HTTP response at all: the endpoint could not be reached.
	return errors.InternalServerError(requestID, msg).WithCause(err)
}
