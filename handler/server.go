package handler

import (
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const maxWebhookBody = 1 << 20

// NewServer exposes the handlers over plain HTTP for local runs:
//
//	POST /telegram/webhook  webhook updates
//	POST /cron/digest       morning digest, run synchronously
//	GET  /healthz           liveness
func NewServer(webhook *Handler, digestHandler *DigestHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/telegram/webhook", func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		}
		headers := make(map[string]string, len(c.Request().Header))
		for k := range c.Request().Header {
			headers[k] = c.Request().Header.Get(k)
		}
		resp, err := webhook.Handle(c.Request().Context(), events.APIGatewayProxyRequest{
			HTTPMethod: c.Request().Method,
			Path:       c.Request().URL.Path,
			Headers:    headers,
			Body:       string(body),
		})
		if err != nil {
			return err
		}
		for k, v := range resp.Headers {
			c.Response().Header().Set(k, v)
		}
		return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, []byte(resp.Body))
	})

	e.POST("/cron/digest", func(c echo.Context) error {
		report, err := digestHandler.Handle(c.Request().Context(), events.CloudWatchEvent{Source: "http"})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, report)
	})

	return e
}
