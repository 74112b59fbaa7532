package responses

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON error body returned by every client-facing
// operation.
type ErrorResponse struct {
	Error string `json:"error"`
}

var GeneralServerError = ErrorResponse{
	Error: "Something went wrong. Please try again later",
}

var BadArgumentsError = ErrorResponse{
	Error: "Bad arguments",
}

var DuplicateOfferError = ErrorResponse{
	Error: "Duplicate asset/tokenIdentifier detected",
}

var InvoiceNotFoundError = ErrorResponse{
	Error: "Invoice not found",
}

func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	c.Logger().Error(err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("RequestID", c.Response().Header().Get(echo.HeaderXRequestID))
			hub.CaptureException(err)
		})
	}
	if he, ok := err.(*echo.HTTPError); ok {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		c.JSON(he.Code, ErrorResponse{Error: msg})
	} else {
		c.JSON(http.StatusInternalServerError, GeneralServerError)
	}
}
