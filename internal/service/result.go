package service

// Status is the outcome vocabulary shared with the HTTP layer
type Status int

// Result kinds
const (
	StatusOK Status = iota + 1
	StatusCreated
	StatusBadRequest
	StatusNotFound
	StatusConflict
	StatusNoContent
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCreated:
		return "created"
	case StatusBadRequest:
		return "bad-request"
	case StatusNotFound:
		return "not-found"
	case StatusConflict:
		return "conflict"
	case StatusNoContent:
		return "no-content"
	default:
		return "unknown"
	}
}

// Result is a typed service outcome. Body is nil for StatusNoContent.
type Result struct {
	Status Status
	Body   any
}

func ok(body any) Result {
	return Result{Status: StatusOK, Body: body}
}

func created(body any) Result {
	return Result{Status: StatusCreated, Body: body}
}

func noContent() Result {
	return Result{Status: StatusNoContent}
}

func badRequest(message string) Result {
	return Result{Status: StatusBadRequest, Body: ErrorResponse{Error: message}}
}

func notFound(message, deviceID string) Result {
	return Result{Status: StatusNotFound, Body: ErrorResponse{Error: message, DeviceID: deviceID}}
}

func conflict(message string) Result {
	return Result{Status: StatusConflict, Body: ErrorResponse{Error: message}}
}
