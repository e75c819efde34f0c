package server

import (
	"context"
	"errors"

	"runcrew/internal/constants"
	"runcrew/internal/domain"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

func codeFor(err error) connect.Code {
	switch {
	case domain.IsInvalidContribution(err), domain.IsValidation(err):
		return connect.CodeInvalidArgument
	case domain.IsConflict(err):
		return connect.CodeFailedPrecondition
	case domain.IsNotFound(err):
		return connect.CodeNotFound
	case domain.IsLockTimeout(err):
		return connect.CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

func toConnectError(err error) *connect.Error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	return connect.NewError(codeFor(err), err)
}

// errorInterceptor bounds each call by RequestTimeout and maps domain errors
// onto connect codes.
func errorInterceptor(fallback zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
			defer cancel()

			res, err := next(ctx, req)
			if err == nil {
				return res, nil
			}

			ce := toConnectError(err)
			log := zerolog.Ctx(ctx)
			if log.GetLevel() == zerolog.Disabled {
				log = &fallback
			}
			event := log.Warn()
			if ce.Code() == connect.CodeInternal {
				event = log.Error()
			}
			event.Err(err).
				Str("procedure", req.Spec().Procedure).
				Str("code", ce.Code().String()).
				Msg("request failed")
			return nil, ce
		}
	}
}
