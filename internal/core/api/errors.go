package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/spelfilter/internal/filter"
	"github.com/solatis/spelfilter/internal/types"
)

// toStatus maps a handler error onto a gRPC status:
//
//	compile errors, bad names      -> InvalidArgument
//	unknown saved filter           -> NotFound
//	duplicate saved filter         -> AlreadyExists
//	deadline / cancellation        -> DeadlineExceeded / Canceled
//	anything else (storage)        -> Unavailable
//
// Auth errors are mapped by the auth interceptor.
func toStatus(err error) error {
	var cerr *filter.CompileError
	switch {
	case errors.As(err, &cerr):
		return status.Error(codes.InvalidArgument, cerr.Error())
	case errors.Is(err, types.ErrInvalidFilterName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrFilterNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrFilterExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

func invalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
