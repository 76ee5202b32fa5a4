package bridge

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danmuck/frostctl/internal/protocol"
	"github.com/danmuck/frostctl/internal/protocol/chunk"
	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// httpStatus maps the driver error taxonomy onto HTTP.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, protocol.ErrInvariantViolation),
		errors.Is(err, protocol.ErrPayloadTooLarge),
		errors.Is(err, chunk.ErrPath):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, protocol.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrDeviceStatus),
		errors.Is(err, protocol.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, protocol.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var se *protocol.StatusError
	if errors.As(err, &se) {
		body["status"] = fmt.Sprintf("0x%04x", uint16(se.Status))
		body["description"] = se.Description
		if se.Diagnostic != "" {
			body["diagnostic"] = se.Diagnostic
		}
	}
	c.JSON(httpStatus(err), body)
}
