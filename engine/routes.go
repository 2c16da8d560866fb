package engine

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/drummonds/bookview/config"
	"github.com/drummonds/bookview/database"
	"github.com/drummonds/bookview/engine/pdfrenderer"
	"github.com/drummonds/bookview/render"
)

// MaxScale bounds the scale accepted by the page endpoint.
const MaxScale = 8.0

// RegisterRoutes adds the render, library and admin API plus the static library
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo
	e.GET("/api/health", serverHandler.Health)
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/render/document", serverHandler.GetDocumentInfo)
	e.GET("/api/render/page", serverHandler.RenderPage)
	e.GET("/api/render/text", serverHandler.GetPageText)
	e.GET("/api/documents", serverHandler.ListDocuments)
	e.GET("/api/documents/:key", serverHandler.GetDocument)
	e.POST("/api/library/scan", serverHandler.RunScanNow)
	e.Static(config.LibraryPrefix, serverHandler.ServerConfig.LibraryPath)
}

func apiError(c echo.Context, code int, err error) error {
	return c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"message": err.Error(),
		"path":    c.Request().URL.Path,
	})
}

// sourceError maps resolve and open failures onto HTTP status codes
func sourceError(c echo.Context, src string, err error) error {
	switch {
	case errors.Is(err, ErrOutsideLibrary):
		return apiError(c, http.StatusBadRequest, err)
	case errors.Is(err, fs.ErrNotExist):
		return apiError(c, http.StatusNotFound, errors.New("document not found: "+src))
	case errors.Is(err, pdfrenderer.ErrPageRange):
		return apiError(c, http.StatusNotFound, err)
	default:
		Logger.Error("Unable to open document", "src", src, "error", err)
		return apiError(c, http.StatusUnprocessableEntity, err)
	}
}

func pageParam(c echo.Context) (int, error) {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "page must be a positive integer")
	}
	return page, nil
}

// Health reports that the API is up
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Status"
// @Router /api/health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"renderer": serverHandler.ServerConfig.Renderer,
	})
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the renderer, library and database
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /api/about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"renderer":     serverHandler.ServerConfig.Renderer,
		"libraryPath":  serverHandler.ServerConfig.LibraryPath,
		"scanInterval": serverHandler.ServerConfig.ScanInterval,
		"cacheName":    serverHandler.ServerConfig.CacheName,
		"databaseType": serverHandler.ServerConfig.DatabaseType,
		"databaseHost": serverHandler.ServerConfig.DatabaseHost,
		"databaseName": serverHandler.ServerConfig.DatabaseDbname,
	}
	return c.JSON(http.StatusOK, aboutInfo)
}

// GetDocumentInfo opens a document and reports its page count and page sizes
// @Summary Open a document
// @Tags Render
// @Produce json
// @Param src query string true "Document URL or library path"
// @Success 200 {object} render.DocumentInfo
// @Failure 400 {object} map[string]interface{} "Source outside library"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /api/render/document [get]
func (serverHandler *ServerHandler) GetDocumentInfo(c echo.Context) error {
	src := c.QueryParam("src")
	path, err := serverHandler.resolveSource(src)
	if err != nil {
		return sourceError(c, src, err)
	}
	ctx := c.Request().Context()
	doc, release, err := serverHandler.openDocument(ctx, path)
	if err != nil {
		return sourceError(c, src, err)
	}
	defer release()

	info := render.DocumentInfo{Source: src, NumPages: doc.NumPages(), Pages: make([]render.PageSize, 0, doc.NumPages())}
	for n := 1; n <= doc.NumPages(); n++ {
		page, err := doc.Page(ctx, n)
		if err != nil {
			return sourceError(c, src, err)
		}
		vp := page.Viewport(1)
		info.Pages = append(info.Pages, render.PageSize{Width: float64(vp.Width), Height: float64(vp.Height)})
	}
	return c.JSON(http.StatusOK, info)
}

// RenderPage renders one page to PNG
// @Summary Render a page
// @Tags Render
// @Produce png
// @Param src query string true "Document URL or library path"
// @Param page query int true "1-based page number"
// @Param scale query number false "Scale, (0, 8], default 1"
// @Param maxWidth query int false "Fit the bitmap inside this width"
// @Param maxHeight query int false "Fit the bitmap inside this height"
// @Success 200 {file} binary "PNG bitmap"
// @Failure 400 {object} map[string]interface{} "Bad request"
// @Failure 404 {object} map[string]interface{} "Document or page not found"
// @Router /api/render/page [get]
func (serverHandler *ServerHandler) RenderPage(c echo.Context) error {
	src := c.QueryParam("src")
	pageNum, err := pageParam(c)
	if err != nil {
		return err
	}
	scale := 1.0
	if raw := c.QueryParam("scale"); raw != "" {
		scale, err = strconv.ParseFloat(raw, 64)
		if err != nil || scale <= 0 || scale > MaxScale {
			return echo.NewHTTPError(http.StatusBadRequest, "scale must be in (0, 8]")
		}
	}
	maxWidth, _ := strconv.Atoi(c.QueryParam("maxWidth"))
	maxHeight, _ := strconv.Atoi(c.QueryParam("maxHeight"))
	if maxWidth < 0 || maxHeight < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "maxWidth and maxHeight must not be negative")
	}

	path, err := serverHandler.resolveSource(src)
	if err != nil {
		return sourceError(c, src, err)
	}
	ctx := c.Request().Context()
	doc, release, err := serverHandler.openDocument(ctx, path)
	if err != nil {
		return sourceError(c, src, err)
	}
	defer release()
	page, err := doc.Page(ctx, pageNum)
	if err != nil {
		return sourceError(c, src, err)
	}

	vp := page.Viewport(scale)
	vp.MaxWidth, vp.MaxHeight = maxWidth, maxHeight
	surface := &render.BitmapSurface{}
	if err := page.Render(ctx, surface, vp); err != nil {
		Logger.Error("Unable to render page", "src", src, "page", pageNum, "scale", scale, "error", err)
		return apiError(c, http.StatusInternalServerError, err)
	}
	bitmap, err := surface.Bitmap()
	if err != nil {
		return apiError(c, http.StatusInternalServerError, err)
	}

	Logger.Debug("Rendered page", "src", src, "page", pageNum, "scale", scale, "width", bitmap.Width, "height", bitmap.Height)
	c.Response().Header().Set(render.HeaderBitmapWidth, strconv.Itoa(bitmap.Width))
	c.Response().Header().Set(render.HeaderBitmapHeight, strconv.Itoa(bitmap.Height))
	return c.Blob(http.StatusOK, bitmap.ContentType, bitmap.Data)
}

// GetPageText extracts the plain text of a page
// @Summary Page text
// @Tags Render
// @Produce json
// @Param src query string true "Document URL or library path"
// @Param page query int true "1-based page number"
// @Success 200 {object} render.TextInfo
// @Router /api/render/text [get]
func (serverHandler *ServerHandler) GetPageText(c echo.Context) error {
	src := c.QueryParam("src")
	pageNum, err := pageParam(c)
	if err != nil {
		return err
	}
	path, err := serverHandler.resolveSource(src)
	if err != nil {
		return sourceError(c, src, err)
	}
	text, err := pdfrenderer.PageText(path, pageNum)
	if err != nil {
		return sourceError(c, src, err)
	}
	return c.JSON(http.StatusOK, render.TextInfo{Page: pageNum, Text: text})
}

// ListDocuments returns the library registry
// @Summary List library documents
// @Tags Library
// @Produce json
// @Success 200 {array} database.Document
// @Router /api/documents [get]
func (serverHandler *ServerHandler) ListDocuments(c echo.Context) error {
	documents, err := serverHandler.DB.ListDocuments(c.Request().Context())
	if err != nil {
		Logger.Error("Unable to list documents", "error", err)
		return apiError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, documents)
}

// GetDocument returns one library document by key
// @Summary Get a library document
// @Tags Library
// @Produce json
// @Param key path string true "Document key"
// @Success 200 {object} database.Document
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /api/documents/{key} [get]
func (serverHandler *ServerHandler) GetDocument(c echo.Context) error {
	document, err := serverHandler.DB.GetDocument(c.Request().Context(), c.Param("key"))
	if errors.Is(err, database.ErrNotFound) {
		return apiError(c, http.StatusNotFound, err)
	}
	if err != nil {
		return apiError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, document)
}

// RunScanNow rescans the library immediately
// @Summary Scan the library
// @Description Register every document found in the library folder
// @Tags Admin
// @Produce json
// @Success 200 {object} ScanResult
// @Router /api/library/scan [post]
func (serverHandler *ServerHandler) RunScanNow(c echo.Context) error {
	Logger.Info("Manual library scan triggered via API")
	result, err := serverHandler.ScanLibrary(c.Request().Context())
	if err != nil {
		return apiError(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, result)
}
