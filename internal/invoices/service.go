package invoices

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	blob "github.com/angelmondragon/storefront-backend/pkg/storage"
)

// ContentType is the media type of rendered invoices.
const ContentType = "application/pdf"

const separator = "-----------------------"

type orderReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Service renders order invoices.
type Service struct {
	orders orderReader
	blob   blob.Blob
	logg   *logger.Logger
}

func NewService(orders orderReader, store blob.Blob, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order reader required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{orders: orders, blob: store, logg: logg}, nil
}

// FileName is the download name of an order's invoice.
func FileName(orderID uuid.UUID) string {
	return "invoice-" + orderID.String() + ".pdf"
}

// Render writes the invoice for orderID to w and to durable storage in one
// pass. Nothing is written unless requesterID placed the order.
func (s *Service) Render(ctx context.Context, requesterID, orderID uuid.UUID, w io.Writer) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.NotFound("order")
		}
		return pkgerrors.Persistence(err, "load order")
	}
	if order.UserID != requesterID {
		return pkgerrors.Forbidden("Unauthorized")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	doc := buildInvoice(order)
	if err := doc.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build invoice")
	}

	stored, err := s.blob.NewWriter(ctx, blob.InvoiceKey(order.ID.String()), ContentType)
	if err != nil {
		return pkgerrors.Upstream(err, "open invoice storage")
	}
	if err := doc.Output(io.MultiWriter(stored, w)); err != nil {
		if abortErr := stored.Abort(); abortErr != nil {
			s.logg.Error(ctx, "failed to discard partial invoice", abortErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write invoice")
	}
	if err := stored.Close(); err != nil {
		// the response already has the document
		s.logg.Error(ctx, "failed to persist invoice", err)
	}
	return nil
}

func buildInvoice(order *models.Order) *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(FileName(order.ID), true)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "U", 26)
	doc.CellFormat(0, 14, "Invoice", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 14)
	doc.CellFormat(0, 8, separator, "", 1, "L", false, 0, "")

	for _, item := range order.LineItems {
		line := fmt.Sprintf("%s - %d x %s", item.Title, item.Quantity, order.Currency.Format(item.PriceCents))
		doc.CellFormat(0, 8, tr(line), "", 1, "L", false, 0, "")
	}

	doc.CellFormat(0, 8, separator, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 20)
	doc.CellFormat(0, 12, tr("Total Price: "+order.Currency.Format(order.TotalCents)), "", 1, "L", false, 0, "")
	return doc
}
