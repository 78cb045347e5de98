// Package handler contains the HTTP handlers. Validation and
// authentication run in middleware before these; handlers read the
// prepared context, call the service layer and shape the response.
package handler

import (
	"time"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds the service calls made from a single request.
const dbTimeout = 5 * time.Second

// ok builds the success envelope. Extra keys are merged in alongside
// success and message.
func ok(message string, extra echo.Map) echo.Map {
	m := echo.Map{"success": true, "message": message}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// fail builds the failure envelope without an errorType.
func fail(message string) echo.Map {
	return echo.Map{"success": false, "message": message}
}
