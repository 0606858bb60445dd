package controllers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ProductList serves one page of the public catalog.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("product")
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			return err
		}
		result, err := svc.ListProducts(r.Context(), page)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, result)
		return nil
	})
}

func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("product")
		}
		id, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			return err
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, product)
		return nil
	})
}

// ProductImage streams the stored product image. Once bytes are flowing a
// copy failure can only be logged.
func ProductImage(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("product")
		}
		id, err := validators.ParseUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			return err
		}
		rc, contentType, err := svc.OpenImage(r.Context(), id)
		if err != nil {
			return err
		}
		defer rc.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if _, err := io.Copy(w, rc); err != nil && logg != nil {
			logg.Error(r.Context(), "product image stream failed", err)
		}
		return nil
	})
}
