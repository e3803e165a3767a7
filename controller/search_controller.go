package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itish2003/semsearch/models"
	"github.com/itish2003/semsearch/services"
)

// SearchController handles the HTTP requests for the search API. It depends on
// the SearchService to perform the actual business logic.
type SearchController struct {
	searchService  services.SearchService
	maxUploadBytes int64
}

// NewSearchController is a constructor function that creates a new SearchController.
// Uploads larger than maxUploadBytes are rejected; zero means no limit.
func NewSearchController(service services.SearchService, maxUploadBytes int64) *SearchController {
	return &SearchController{
		searchService:  service,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the API under the given group.
func (c *SearchController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/sessions", c.StartSession)
	api.DELETE("/sessions/:id", c.EndSession)
	api.POST("/sessions/:id/dataset", c.UploadDataset)
	api.GET("/sessions/:id/progress", c.GetProgress)
	api.POST("/sessions/:id/query", c.Query)
	api.DELETE("/sessions/:id/namespace", c.ClearNamespace)
}

// StartSession is the handler for POST /api/v1/sessions. The index is
// provisioned on the way; if that fails the session id is still returned with
// ready=false so the client can show why nothing else is offered.
func (c *SearchController) StartSession(ctx *gin.Context) {
	sess, err := c.searchService.StartSession(ctx.Request.Context())
	resp := models.SessionResponse{
		SessionID: sess.ID,
		Index:     c.searchService.IndexName(),
		Ready:     err == nil,
	}
	if err != nil {
		resp.Error = err.Error()
		ctx.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// EndSession is the handler for DELETE /api/v1/sessions/:id.
func (c *SearchController) EndSession(ctx *gin.Context) {
	c.searchService.EndSession(ctx.Param("id"))
	ctx.Status(http.StatusNoContent)
}

// UploadDataset is the handler for POST /api/v1/sessions/:id/dataset. It
// expects a multipart form with a "file" field and blocks until the dataset
// is indexed.
func (c *SearchController) UploadDataset(ctx *gin.Context) {
	if c.maxUploadBytes > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBytes)
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error: fmt.Sprintf("Upload exceeds the %d byte limit", tooLarge.Limit),
			})
			return
		}
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "A CSV file is required in the 'file' field: " + err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Could not read uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	result, err := c.searchService.IngestDataset(ctx.Request.Context(), ctx.Param("id"), fileHeader.Filename, file, nil)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetProgress is the handler for GET /api/v1/sessions/:id/progress.
func (c *SearchController) GetProgress(ctx *gin.Context) {
	progress, err := c.searchService.Progress(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, progress)
}

// Query is the handler for POST /api/v1/sessions/:id/query.
func (c *SearchController) Query(ctx *gin.Context) {
	var req models.QueryTextRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	answer, err := c.searchService.Ask(ctx.Request.Context(), ctx.Param("id"), req.Query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, answer)
}

// ClearNamespace is the handler for DELETE /api/v1/sessions/:id/namespace.
// It irreversibly removes every stored vector of the active dataset.
func (c *SearchController) ClearNamespace(ctx *gin.Context) {
	namespace, err := c.searchService.ClearNamespace(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Stored data deleted", "namespace": namespace})
}

func respondError(ctx *gin.Context, err error) {
	resp := models.ErrorResponse{Error: err.Error()}

	var upsertErr *services.UpsertError
	switch {
	case errors.As(err, &upsertErr):
		rows := upsertErr.RowsWritten
		resp.RowsWritten = &rows
		ctx.JSON(http.StatusBadGateway, resp)
	case errors.Is(err, services.ErrMalformedInput):
		ctx.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, services.ErrSessionNotFound):
		ctx.JSON(http.StatusNotFound, resp)
	case errors.Is(err, services.ErrNoDataset):
		ctx.JSON(http.StatusConflict, resp)
	case errors.Is(err, services.ErrIndexUnavailable):
		ctx.JSON(http.StatusServiceUnavailable, resp)
	case errors.Is(err, services.ErrDeleteFailed):
		ctx.JSON(http.StatusBadGateway, resp)
	default:
		ctx.JSON(http.StatusInternalServerError, resp)
	}
}
