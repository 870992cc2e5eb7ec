package awsapi

import (
	"context"
	stderrors "errors"

	"github.com/aws/smithy-go"

	"github.com/agentstation/tagsync/pkg/errors"
)

// Classify converts an error returned by an AWS SDK call into an
// *errors.APIError carrying the service error code. Context errors are
// mapped to the timeout and cancellation sentinels. A nil err returns nil.
func Classify(service, operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return &errors.APIError{Service: service, Operation: operation, Message: "deadline exceeded", Err: stderrors.Join(errors.ErrTimeout, err)}
	case stderrors.Is(err, context.Canceled):
		return &errors.APIError{Service: service, Operation: operation, Message: "canceled", Err: stderrors.Join(errors.ErrCanceled, err)}
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		return &errors.APIError{
			Service:   service,
			Operation: operation,
			Code:      apiErr.ErrorCode(),
			Message:   apiErr.ErrorMessage(),
			Err:       err,
		}
	}

	return &errors.APIError{
		Service:   service,
		Operation: operation,
		Message:   err.Error(),
		Err:       err,
	}
}
