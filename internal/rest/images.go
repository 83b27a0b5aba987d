package rest

import (
	"errors"
	"net/http"

	"github.com/dfryer1193/ndar/api"
	"github.com/dfryer1193/ndar/imaging/application"
	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handler struct {
	pkg *application.Package
}

func Healthz(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// GetRecords lists the package index
func (h *handler) GetRecords(c *gin.Context) {
	records, err := h.pkg.Records(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := api.Records{
		Count:   len(records),
		Records: make([]map[string]string, 0, len(records)),
	}
	for _, rec := range records {
		out.Records = append(out.Records, rec)
	}

	c.JSON(http.StatusOK, out)
}

// GetImageFiles materializes the image named by the ref query parameter and returns its classification.
// The staging area is released before the response is written.
func (h *handler) GetImageFiles(c *gin.Context) {
	ref := c.Query("ref")
	ctx := c.Request.Context()

	img, err := h.pkg.Image(ctx, ref)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := img.Close(); err != nil {
			log.Error().Err(err).Str("ref", ref).Msg("Failed to release image")
		}
	}()

	files, err := img.Files(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	out := api.ImageFiles{
		Source: img.Source().String(),
		Files:  make(map[string][]string, len(files)),
	}
	for tag, names := range files {
		out.Files[string(tag)] = names
	}

	c.JSON(http.StatusOK, out)
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, api.Error{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCapabilityUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrUnpack), errors.Is(err, domain.ErrClassification):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
