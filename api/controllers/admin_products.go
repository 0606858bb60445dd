package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const formOverheadBytes = 64 << 10

// productForm is the multipart body shared by create and update. Lengths
// count characters, not bytes.
type productForm struct {
	Title       string                  `json:"title" validate:"required,min=3,max=200"`
	Price       string                  `json:"price" validate:"required,max=32"`
	Description string                  `json:"description" validate:"required,min=3,max=400"`
	Image       *productsvc.ImageUpload `json:"-"`
}

func parseProductForm(w http.ResponseWriter, r *http.Request, maxImageBytes int64) (productForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(maxImageBytes + formOverheadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return productForm{}, pkgerrors.Validation("image", "image is too large")
		}
		return productForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	form := productForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validators.ValidateStruct(&form); err != nil {
		return productForm{}, err
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil
	case err != nil:
		return productForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return productForm{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image upload")
	}
	if int64(len(data)) > maxImageBytes {
		return productForm{}, pkgerrors.Validation("image", "image is too large")
	}
	form.Image = &productsvc.ImageUpload{Filename: header.Filename, Data: data}
	return form, nil
}

// ownerAction resolves the signed-in owner and, when withID is set, the
// productId path parameter before running fn.
func ownerAction(svc productsvc.Service, logg *logger.Logger, withID bool, fn func(w http.ResponseWriter, r *http.Request, owner, productID uuid.UUID) error) http.HandlerFunc {
	return handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		if svc == nil {
			return unavailable("product")
		}
		owner, err := requireUser(r)
		if err != nil {
			return err
		}
		var productID uuid.UUID
		if withID {
			if productID, err = validators.ParseUUID(chi.URLParam(r, "productId"), "productId"); err != nil {
				return err
			}
		}
		return fn(w, r, owner, productID)
	})
}

// AdminProductList pages through the caller's own products.
func AdminProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownerAction(svc, logg, false, func(w http.ResponseWriter, r *http.Request, owner, _ uuid.UUID) error {
		page, err := validators.ParsePage(r)
		if err != nil {
			return err
		}
		result, err := svc.ListOwnedProducts(r.Context(), owner, page)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, result)
		return nil
	})
}

func AdminProductCreate(svc productsvc.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return ownerAction(svc, logg, false, func(w http.ResponseWriter, r *http.Request, owner, _ uuid.UUID) error {
		form, err := parseProductForm(w, r, maxImageBytes)
		if err != nil {
			return err
		}
		product, err := svc.CreateProduct(r.Context(), owner, productsvc.CreateProductInput{
			Title:       form.Title,
			Price:       form.Price,
			Description: form.Description,
			Image:       form.Image,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
		return nil
	})
}

// AdminProductUpdate edits an owned product. Omitting the image keeps the current one.
func AdminProductUpdate(svc productsvc.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return ownerAction(svc, logg, true, func(w http.ResponseWriter, r *http.Request, owner, productID uuid.UUID) error {
		form, err := parseProductForm(w, r, maxImageBytes)
		if err != nil {
			return err
		}
		product, err := svc.UpdateProduct(r.Context(), owner, productID, productsvc.UpdateProductInput{
			Title:       form.Title,
			Price:       form.Price,
			Description: form.Description,
			Image:       form.Image,
		})
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, product)
		return nil
	})
}

func AdminProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return ownerAction(svc, logg, true, func(w http.ResponseWriter, r *http.Request, owner, productID uuid.UUID) error {
		if err := svc.DeleteProduct(r.Context(), owner, productID); err != nil {
			return err
		}
		responses.WriteSuccess(w, map[string]string{"message": "Success!"})
		return nil
	})
}
