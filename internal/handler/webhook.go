package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"wompi-billing-service/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
}

func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// CheckTransaction answers the frontend's status poll after a Web Checkout
// redirect.
func (h *WebhookHandler) CheckTransaction(c echo.Context) error {
	ctx := c.Request().Context()

	wompiID := c.Param("wompi_id")
	if wompiID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing transaction id")
	}

	resp, err := h.webhookService.CheckTransaction(ctx, wompiID)
	if errors.Is(err, service.ErrMalformedEvent) {
		return echo.NewHTTPError(http.StatusBadGateway, "unexpected gateway response")
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleWompiWebhook receives gateway deliveries. The body is read raw: the
// signature covers the exact bytes on the wire.
func (h *WebhookHandler) HandleWompiWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	signature := c.Request().Header.Get("X-Signature")

	err = h.webhookService.HandleWebhook(ctx, body, signature)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, service.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, service.ErrMalformedEvent):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
	default:
		// Non-success tells the gateway to redeliver; processing is
		// idempotent so the replay is safe.
		log.Printf("webhook processing error: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook processing failed")
	}
}
