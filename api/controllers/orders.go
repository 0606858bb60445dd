package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/invoices"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// InvoiceRenderer writes an order invoice for its purchaser.
type InvoiceRenderer interface {
	Render(ctx context.Context, requesterID, orderID uuid.UUID, w io.Writer) error
}

func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("order")
		}
		userID, err := requireUser(r)
		if err != nil {
			return err
		}
		list, err := svc.ListOrders(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
		return nil
	})
}

// pdfResponse defers the response headers until the first invoice byte, so
// a rejected render can still answer with the JSON error envelope.
type pdfResponse struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (p *pdfResponse) Write(b []byte) (int, error) {
	if !p.started {
		p.started = true
		h := p.w.Header()
		h.Set("Content-Type", invoices.ContentType)
		h.Set("Content-Disposition", `inline; filename="`+p.filename+`"`)
		p.w.WriteHeader(http.StatusOK)
	}
	return p.w.Write(b)
}

// OrderInvoice streams the PDF invoice for one of the caller's orders.
func OrderInvoice(svc InvoiceRenderer, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("invoice")
		}
		userID, err := requireUser(r)
		if err != nil {
			return err
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			return err
		}

		out := &pdfResponse{w: w, filename: invoices.FileName(orderID)}
		err = svc.Render(r.Context(), userID, orderID, out)
		if err != nil && out.started {
			if logg != nil {
				logg.Error(r.Context(), "invoice.stream_failed", err)
			}
			return nil
		}
		return err
	})
}
