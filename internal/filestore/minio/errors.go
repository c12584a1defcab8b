package minio

import (
	"context"
	"errors"
	"net/http"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/koustreak/tabula/internal/errs"
)

// mapError translates a MinIO SDK error into a *errs.Error.
// It mirrors the classify functions of the database dialects.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindQuery, msg, err)
	}

	// MinIO SDK exposes a typed ErrorResponse for S3-protocol errors
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchKey", "NoSuchObject":
			return errs.Wrap(errs.ErrKindNoSuchObject, msg, err)
		case "NoSuchBucket":
			return errs.Wrap(errs.ErrKindConnection, msg, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return errs.Wrap(errs.ErrKindAccessDenied, msg, err)
		case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
			return errs.Wrap(errs.ErrKindValidation, msg, err)
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNoSuchObject, msg, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errs.Wrap(errs.ErrKindAccessDenied, msg, err)
		case http.StatusBadRequest:
			return errs.Wrap(errs.ErrKindValidation, msg, err)
		}
	}

	// Anything else is a transport or server failure
	return errs.Wrap(errs.ErrKindConnection, msg, err)
}
