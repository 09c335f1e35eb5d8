package domain

import "go.trai.ch/zerr"

var (
	// ErrNotCacheable is returned when a non-GET request identity is offered to the cache.
	ErrNotCacheable = zerr.New("request is not cacheable")

	// ErrUpstreamUnavailable is returned when the origin could not be reached.
	ErrUpstreamUnavailable = zerr.New("upstream unavailable")

	// ErrOffline is returned when neither the network nor the cache can satisfy a request.
	ErrOffline = zerr.New("offline and not cached")

	// ErrInvalidNamespace is returned when a cache namespace is empty or contains a path separator.
	ErrInvalidNamespace = zerr.New("invalid cache namespace")

	// ErrUnknownRecordKind is returned when a queued record has a kind the server does not accept.
	ErrUnknownRecordKind = zerr.New("unknown record kind")

	// ErrInvalidPayload is returned when a queued record payload is not a JSON object.
	ErrInvalidPayload = zerr.New("payload must be a JSON object")

	// ErrRecordNotFound is returned when a correlation ID does not name a queued record.
	ErrRecordNotFound = zerr.New("queued record not found")

	// ErrInvalidTransition is returned when a delivery state change is not allowed.
	ErrInvalidTransition = zerr.New("invalid delivery state transition")

	// ErrSyncInProgress is returned when a sync run is requested while another is active.
	ErrSyncInProgress = zerr.New("sync already in progress")

	// ErrBatchRejected is returned when the batch endpoint answers with a non-2xx status.
	ErrBatchRejected = zerr.New("batch rejected by server")

	// ErrInvalidCoordinates is returned when a latitude or longitude is out of range.
	ErrInvalidCoordinates = zerr.New("invalid coordinates")

	// ErrInvalidGeoFence is returned when a geo-fence has a negative radius or buffer.
	ErrInvalidGeoFence = zerr.New("invalid geo-fence")

	// ErrGeoFenceViolation is returned when an attendance event is captured outside its project fence.
	ErrGeoFenceViolation = zerr.New("location outside project geo-fence")

	// ErrInvalidConfig is returned when the configuration file fails validation.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrUnknownDriver is returned when a storage driver name is not recognised.
	ErrUnknownDriver = zerr.New("unknown storage driver")
)
