package sync

import "errors"

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("sync: platform not configured")
	ErrPlatformNotSupported    = errors.New("sync: platform not supported")
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("sync: platform request failed")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformRateLimited     = errors.New("sync: platform rate limited")

	// Store errors: missing store or credentials is fatal for the calling job
	// and is never retried.
	ErrStoreNotFound       = errors.New("sync: store not found")
	ErrCredentialsNotFound = errors.New("sync: store credentials not found")
	ErrStoreInactive       = errors.New("sync: store is not active")

	// Mapping errors
	ErrMappingNotFound       = errors.New("sync: platform mapping not found")
	ErrMappingAlreadyExists  = errors.New("sync: platform mapping already exists")
	ErrMappingInvalidOrgID   = errors.New("sync: invalid organization ID")
	ErrMappingInvalidStoreID = errors.New("sync: invalid store ID")
	ErrMappingInvalidLocalID = errors.New("sync: invalid local product/variant ID")
	ErrMappingInvalidCode    = errors.New("sync: invalid platform code")
	ErrMappingInvalidRemote  = errors.New("sync: invalid platform product ID")

	// Product sync errors
	ErrProductNotFound      = errors.New("sync: local product not found")
	ErrProductInvalid       = errors.New("sync: invalid product for sync")
	ErrPayloadValidation    = errors.New("sync: payload failed platform validation")
	ErrInvalidSyncDirection = errors.New("sync: invalid sync direction")

	// Recovery errors
	ErrRecordNotFound     = errors.New("sync: error record not found")
	ErrRecordNotRetryable = errors.New("sync: error record is not retryable")

	// Scheduler errors
	ErrScheduleNotFound = errors.New("sync: schedule not found")
	ErrScheduleExists   = errors.New("sync: schedule already exists")
	ErrInvalidCronExpr  = errors.New("sync: invalid cron expression")
)
