package controllers

import (
	"encoding/json"

	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/lib/idempotency"
	"github.com/sparkgate/sparkgate/lib/service"
)

func idempotencyKey(c echo.Context) string {
	return c.Request().Header.Get(idempotency.HeaderKey)
}

// replayCachedResponse returns the stored response for this (operation, key)
// pair verbatim, if one exists. Cache errors degrade to a fresh execution
// rather than failing the request.
func replayCachedResponse(c echo.Context, svc *service.SparkgateService, operation string) (bool, error) {
	key := idempotencyKey(c)
	if key == "" || svc.IdempotencyCache == nil {
		return false, nil
	}
	cached, err := svc.IdempotencyCache.Get(c.Request().Context(), operation, key)
	if err != nil {
		c.Logger().Errorf("Error reading idempotency cache: %v", err)
		return false, nil
	}
	if cached == nil {
		return false, nil
	}
	return true, c.JSONBlob(cached.StatusCode, cached.Body)
}

// cacheAndRespond stores the response under the request's idempotency key
// (when present) and sends the exact same bytes to the client, so replays are
// byte-identical.
func cacheAndRespond(c echo.Context, svc *service.SparkgateService, operation string, statusCode int, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if key := idempotencyKey(c); key != "" && svc.IdempotencyCache != nil {
		if err := svc.IdempotencyCache.Set(c.Request().Context(), operation, key, statusCode, payload, svc.IdempotencyTTL()); err != nil {
			c.Logger().Errorf("Error storing idempotent response: %v", err)
		}
	}
	return c.JSONBlob(statusCode, payload)
}
