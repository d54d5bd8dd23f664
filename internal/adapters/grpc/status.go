package grpcadapter

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/samirrijal/routeguide/internal/core/dispatch"
)

// toStatus converts a dispatch result into a gRPC status error. Errors that
// already carry a status pass through unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeFor(err), err.Error())
}

func codeFor(err error) codes.Code {
	switch dispatch.Outcome(err) {
	case dispatch.OutcomeOK:
		return codes.OK
	case dispatch.OutcomeUnimplemented:
		return codes.Unimplemented
	case dispatch.OutcomeCanceled:
		return codes.Canceled
	case dispatch.OutcomeDeadlineExceeded:
		return codes.DeadlineExceeded
	case dispatch.OutcomeInvalidArgument:
		return codes.InvalidArgument
	case dispatch.OutcomePanic:
		return codes.Internal
	default:
		return codes.Unknown
	}
}
