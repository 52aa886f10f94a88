package http

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tkstan/fusiondoc/internal/config"
	"github.com/tkstan/fusiondoc/internal/domain"
	"github.com/tkstan/fusiondoc/internal/links"
	"github.com/tkstan/fusiondoc/internal/logger"
	"github.com/tkstan/fusiondoc/internal/selection"
	"github.com/tkstan/fusiondoc/internal/storage"
	"github.com/tkstan/fusiondoc/internal/workspace"
)

type API struct {
	cfg        config.Config
	workspaces *workspace.Registry
	links      *links.Service
	log        logger.Logger
}

func NewAPI(cfg config.Config, workspaces *workspace.Registry, links *links.Service, log logger.Logger) *API {
	return &API{cfg: cfg, workspaces: workspaces, links: links, log: log}
}

func registerRoutes(r *gin.Engine, api *API) {
	r.SetHTMLTemplate(workspaceTemplate)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.POST("/workspaces", api.handleCreateWorkspace)
		apiGroup.GET("/workspaces/:id", api.handleGetWorkspace)
		apiGroup.DELETE("/workspaces/:id", api.handleDeleteWorkspace)

		apiGroup.POST("/workspaces/:id/files", api.handleAddFiles)
		apiGroup.DELETE("/workspaces/:id/files/*name", api.handleRemoveFile)
		apiGroup.POST("/workspaces/:id/reorder", api.handleReorder)
		apiGroup.POST("/workspaces/:id/merge", api.handleMerge)
		apiGroup.POST("/workspaces/:id/reset", api.handleReset)
		apiGroup.POST("/workspaces/:id/result/link", api.handleResultLink)
	}

	r.GET("/", api.handleIndex)
	r.GET("/w/:id", api.handleWorkspacePage)
	r.GET("/w/:id/download", api.handlePageDownload)
	r.GET("/download/:token", api.handleDownload)
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "workspaces": a.workspaces.Count()})
}

func (a *API) handleCreateWorkspace(c *gin.Context) {
	ws := a.workspaces.Create()
	c.JSON(http.StatusCreated, ws.State())
}

func (a *API) handleGetWorkspace(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.State())
}

func (a *API) handleDeleteWorkspace(c *gin.Context) {
	if err := a.workspaces.Delete(c.Param("id")); err != nil {
		respondMessage(c, http.StatusNotFound, "workspace not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleAddFiles(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			respondMessage(c, http.StatusRequestEntityTooLarge, "upload exceeds maximum size")
			return
		}
		respondMessage(c, http.StatusBadRequest, "missing files")
		return
	}

	headers := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		respondMessage(c, http.StatusBadRequest, "missing files")
		return
	}

	source := c.PostForm("source")
	if source == "" {
		source = domain.IntakeSourcePicker
	}
	if source != domain.IntakeSourceDrop && source != domain.IntakeSourcePicker {
		respondMessage(c, http.StatusBadRequest, "source must be drop or picker")
		return
	}

	uploads := make([]workspace.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, uploadFromHeader(fh))
	}

	a.log.Debug("intake", "upload received", map[string]interface{}{
		"workspace": ws.ID(),
		"source":    source,
		"files":     len(uploads),
	})

	added, err := ws.AddFiles(uploads)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, workspace.ErrClosed):
			status = http.StatusNotFound
		}
		a.log.Error("intake", "storing upload failed", map[string]interface{}{
			"workspace": ws.ID(),
			"error":     err,
		})
		respondError(c, status, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": added, "workspace": ws.State()})
}

func (a *API) handleRemoveFile(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}

	name := strings.TrimPrefix(c.Param("name"), "/")
	if err := ws.RemoveFile(name); err != nil {
		respondMessage(c, http.StatusNotFound, "file not found")
		return
	}
	c.JSON(http.StatusOK, ws.State())
}

func (a *API) handleReorder(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}

	var payload struct {
		From *int `json:"from" binding:"required"`
		To   *int `json:"to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	if err := ws.Reorder(*payload.From, *payload.To); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, selection.ErrIndexOutOfRange) {
			status = http.StatusBadRequest
		}
		respondError(c, status, err)
		return
	}
	c.JSON(http.StatusOK, ws.State())
}

func (a *API) handleMerge(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}

	// The merge outlives a dropped client; the busy flag clears when it resolves.
	result, err := ws.Merge(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, workspace.ErrBusy), errors.Is(err, workspace.ErrDiscarded), errors.Is(err, workspace.ErrClosed):
			status = http.StatusConflict
		case errors.Is(err, workspace.ErrNotEnoughFiles):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, workspace.ErrMergeFailed):
			status = http.StatusBadGateway
		}

		state := ws.State()
		message := state.Error
		if message == "" {
			message = err.Error()
		}
		c.JSON(status, gin.H{"error": message, "workspace": state})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result, "workspace": ws.State()})
}

func (a *API) handleReset(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}
	ws.Reset()
	c.JSON(http.StatusOK, ws.State())
}

func (a *API) handleResultLink(c *gin.Context) {
	ws, ok := a.workspace(c)
	if !ok {
		return
	}

	result, ok := ws.Result()
	if !ok {
		respondMessage(c, http.StatusNotFound, "no merge result available")
		return
	}

	url, ref := a.links.Issue(ws.ID(), result.ID)
	c.JSON(http.StatusOK, gin.H{
		"url":       url,
		"filename":  result.Filename,
		"expiresAt": ref.ExpiresAt.UTC(),
	})
}

func (a *API) handleIndex(c *gin.Context) {
	ws := a.workspaces.Create()
	c.Redirect(http.StatusSeeOther, "/w/"+ws.ID())
}

func (a *API) handleWorkspacePage(c *gin.Context) {
	ws, err := a.workspaces.Get(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, workspaceTemplateName, buildPage(ws.State(), a.cfg.MaxUploadBytes))
}

// handlePageDownload issues a fresh one-shot reference and sends the browser
// straight to it.
func (a *API) handlePageDownload(c *gin.Context) {
	ws, err := a.workspaces.Get(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	result, ok := ws.Result()
	if !ok {
		c.Redirect(http.StatusSeeOther, "/w/"+ws.ID())
		return
	}

	_, ref := a.links.Issue(ws.ID(), result.ID)
	c.Redirect(http.StatusSeeOther, links.SignURL(links.Path(ref.Token), ref.ExpiresAt.Unix(), a.cfg.LinkSecret))
}

func (a *API) handleDownload(c *gin.Context) {
	token := c.Param("token")
	expiresParam := c.Query("exp")
	signature := c.Query("sig")

	if expiresParam == "" || signature == "" {
		respondMessage(c, http.StatusBadRequest, "missing signature")
		return
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "invalid expiration")
		return
	}

	ref, err := a.links.Redeem(token, expires, signature)
	switch {
	case errors.Is(err, links.ErrLinkExpired):
		respondMessage(c, http.StatusGone, "link expired")
		return
	case errors.Is(err, links.ErrInvalidSignature):
		respondMessage(c, http.StatusForbidden, "invalid signature")
		return
	case err != nil:
		respondMessage(c, http.StatusNotFound, err.Error())
		return
	}

	ws, err := a.workspaces.Get(ref.WorkspaceID)
	if err != nil {
		respondMessage(c, http.StatusNotFound, "workspace not found")
		return
	}

	result, path, err := ws.ResultPath(ref.ResultID)
	if err != nil {
		respondMessage(c, http.StatusNotFound, "result not found")
		return
	}

	a.log.Info("download", "result downloaded", map[string]interface{}{
		"workspace": ws.ID(),
		"result":    result.ID,
		"age":       time.Since(result.CreatedAt).String(),
	})

	c.FileAttachment(path, result.Filename)
}

func (a *API) workspace(c *gin.Context) (*workspace.Workspace, bool) {
	ws, err := a.workspaces.Get(c.Param("id"))
	if err != nil {
		respondMessage(c, http.StatusNotFound, "workspace not found")
		return nil, false
	}
	return ws, true
}

func uploadFromHeader(fh *multipart.FileHeader) workspace.Upload {
	return workspace.Upload{
		Name:     fh.Filename,
		Size:     fh.Size,
		MIMEType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
