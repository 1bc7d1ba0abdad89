package backend

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/fxshelf/internal/backend/database"
	"github.com/jo-hoe/fxshelf/internal/core"
	"github.com/jo-hoe/fxshelf/internal/query"

	"github.com/labstack/echo/v4"
)

const maxImportBytes = 64 << 20

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

// IngestRequest is sent by the page scraper for the page at URL.
type IngestRequest struct {
	URL    string            `json:"url" validate:"required"`
	Scrape core.ScrapeResult `json:"scrape"`
}

type IngestResponse struct {
	Status   string                `json:"status"`
	Outcome  string                `json:"outcome"`
	Message  string                `json:"message"`
	IsError  bool                  `json:"isError"`
	Warnings []string              `json:"warnings,omitempty"`
	Image    *database.ImageRecord `json:"image,omitempty"`
}

type ImagesResponse struct {
	Status string                  `json:"status"`
	Images []*database.ImageRecord `json:"images"`
}

type ImageResponse struct {
	Status string                `json:"status"`
	Image  *database.ImageRecord `json:"image"`
}

type TagsResponse struct {
	Status string          `json:"status"`
	Tags   []query.TagChip `json:"tags"`
}

type ImportResponse struct {
	Status string            `json:"status"`
	Report core.ImportReport `json:"report"`
}

type RefreshResponse struct {
	Status string             `json:"status"`
	Report core.RefreshReport `json:"report"`
}

type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.POST("/ingest", s.ingestHandler)
	api.GET("/images", s.getImagesHandler)
	api.POST("/images", s.addImageHandler)
	api.DELETE("/images", s.clearImagesHandler)
	api.GET("/images/:id", s.getImageHandler)
	api.PUT("/images/:id", s.updateImageHandler)
	api.PATCH("/images/:id", s.editImageHandler)
	api.DELETE("/images/:id", s.deleteImageHandler)
	api.GET("/search", s.searchHandler)
	api.GET("/tags", s.tagsHandler)
	api.GET("/export", s.exportHandler)
	api.POST("/import", s.importHandler)
	api.POST("/thumbnails/refresh", s.refreshThumbnailsHandler)
}

func (s *APIService) ingestHandler(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, err)
	}

	result, err := s.coreService.Ingest(c.Request().Context(), req.URL, req.Scrape)
	response := IngestResponse{
		Status:   "ok",
		Outcome:  result.Outcome.String(),
		Message:  result.Message(),
		IsError:  result.IsError(),
		Warnings: result.Warnings,
		Image:    result.Record,
	}
	if err != nil {
		response.Status = "error"
		return c.JSON(statusFor(err), response)
	}
	return c.JSON(http.StatusCreated, response)
}

func (s *APIService) getImagesHandler(c echo.Context) error {
	images, err := s.coreService.Images(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImagesResponse{Status: "ok", Images: images})
}

func (s *APIService) getImageHandler(c echo.Context) error {
	image, err := s.coreService.Image(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Status: "ok", Image: image})
}

func (s *APIService) addImageHandler(c echo.Context) error {
	var record database.ImageRecord
	if err := c.Bind(&record); err != nil {
		return errorResponse(c, err)
	}
	if strings.TrimSpace(record.ID) == "" {
		return c.JSON(http.StatusUnprocessableEntity, StatusResponse{Status: "error", Error: "image id is required"})
	}
	if err := s.coreService.AddImage(c.Request().Context(), &record); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, ImageResponse{Status: "ok", Image: &record})
}

func (s *APIService) updateImageHandler(c echo.Context) error {
	var record database.ImageRecord
	if err := c.Bind(&record); err != nil {
		return errorResponse(c, err)
	}
	// the path decides which record is written
	record.ID = c.Param("id")
	if err := s.coreService.UpdateImage(c.Request().Context(), &record); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Status: "ok", Image: &record})
}

func (s *APIService) editImageHandler(c echo.Context) error {
	var req core.EditRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return errorResponse(c, err)
	}
	image, err := s.coreService.Edit(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImageResponse{Status: "ok", Image: image})
}

func (s *APIService) deleteImageHandler(c echo.Context) error {
	if err := s.coreService.DeleteImage(c.Request().Context(), c.Param("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *APIService) clearImagesHandler(c echo.Context) error {
	if err := s.coreService.ClearImages(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *APIService) searchHandler(c echo.Context) error {
	images, err := s.coreService.Search(c.Request().Context(), c.QueryParam("q"), listParam(c, "tags"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImagesResponse{Status: "ok", Images: images})
}

func (s *APIService) tagsHandler(c echo.Context) error {
	chips, err := s.coreService.Tags(c.Request().Context(), listParam(c, "selected"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, TagsResponse{Status: "ok", Tags: chips})
}

func (s *APIService) exportHandler(c echo.Context) error {
	var buf bytes.Buffer
	name, err := s.coreService.Export(c.Request().Context(), &buf)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, buf.Bytes())
}

func (s *APIService) importHandler(c echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxImportBytes)
	report, err := s.coreService.Import(c.Request().Context(), body)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ImportResponse{Status: "ok", Report: report})
}

func (s *APIService) refreshThumbnailsHandler(c echo.Context) error {
	report, err := s.coreService.RefreshThumbnails(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, RefreshResponse{Status: "ok", Report: report})
}

// listParam accepts both repeated (?tags=a&tags=b) and comma separated (?tags=a,b) values.
func listParam(c echo.Context, name string) []string {
	var values []string
	for _, raw := range c.QueryParams()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func errorResponse(c echo.Context, err error) error {
	status := statusFor(err)
	message := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message = fmt.Sprint(httpErr.Message)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, StatusResponse{Status: "error", Error: message})
}

func statusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, database.ErrDuplicateKey), errors.Is(err, database.ErrDuplicateSource):
		return http.StatusConflict
	case errors.Is(err, database.ErrNotFound), errors.Is(err, core.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingRequiredField),
		errors.Is(err, core.ErrUnsupportedSource),
		errors.Is(err, core.ErrInvalidImport),
		errors.Is(err, core.ErrInvalidEdit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrStorageUnavailable), errors.Is(err, core.ErrThumbnailsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
