package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sparkgate/sparkgate/lib/service"
)

// MetricsController exposes the in-process execution time samples.
type MetricsController struct {
	svc *service.SparkgateService
}

func NewMetricsController(svc *service.SparkgateService) *MetricsController {
	return &MetricsController{svc: svc}
}

func (controller *MetricsController) ExecutionTimes(c echo.Context) error {
	return c.JSON(http.StatusOK, controller.svc.Timing.Snapshot())
}
