package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eduvoyage/admin-gateway/internal/engine"
	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
	"github.com/eduvoyage/admin-gateway/pkg/export"
	"github.com/eduvoyage/admin-gateway/pkg/response"
	"github.com/eduvoyage/admin-gateway/pkg/storage"
)

// ExportHandler renders an entity's current items as CSV or PDF. The route
// parameter carries the format as a file extension, e.g. /exports/country.csv.
// When an archive is configured every rendering is also written to disk and a
// signed share token is returned in the X-Export-Share-Token header.
type ExportHandler struct {
	sup     *engine.Supervisor
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	title   string
	archive *storage.Archive
	signer  *storage.ShareSigner
}

// NewExportHandler constructs ExportHandler. archive and signer may be nil to
// disable the share flow.
func NewExportHandler(sup *engine.Supervisor, title string, archive *storage.Archive, signer *storage.ShareSigner) *ExportHandler {
	return &ExportHandler{
		sup:     sup,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		title:   title,
		archive: archive,
		signer:  signer,
	}
}

// Download streams the requested entity list as a file attachment.
func (h *ExportHandler) Download(c *gin.Context) {
	file := c.Param("file")
	dot := strings.LastIndex(file, ".")
	if dot <= 0 || dot == len(file)-1 {
		response.Error(c, appErrors.Validation("export path must be <entity>.csv or <entity>.pdf"))
		return
	}
	name, format := file[:dot], file[dot+1:]

	data, err := h.dataset(name)
	if err != nil {
		response.Error(c, err)
		return
	}

	var rendered []byte
	var renderErr error
	var contentType string
	switch format {
	case "csv":
		rendered, renderErr = h.csv.Render(data)
		contentType = "text/csv"
	case "pdf":
		rendered, renderErr = h.pdf.Render(data, fmt.Sprintf("%s %s", h.title, name))
		contentType = "application/pdf"
	default:
		response.Error(c, appErrors.Validation("unsupported export format "+format))
		return
	}
	if renderErr != nil {
		response.Error(c, appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, format+" export failed"))
		return
	}

	if h.archive != nil && h.signer != nil {
		exportID := uuid.NewString()
		rel := fmt.Sprintf("%s/%s.%s", name, exportID, format)
		if _, saveErr := h.archive.Save(rel, rendered); saveErr == nil {
			if token, _, tokenErr := h.signer.Generate(exportID, rel); tokenErr == nil {
				c.Header("X-Export-Share-Token", token)
			}
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", name, format))
	c.Data(http.StatusOK, contentType, rendered)
}

// Shared streams a previously archived export referenced by a signed token.
func (h *ExportHandler) Shared(c *gin.Context) {
	if h.archive == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export sharing is not configured"))
		return
	}

	_, rel, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid share token"))
		return
	}

	data, err := h.archive.Read(rel)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "archived export no longer available"))
		return
	}

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(rel, ".csv"):
		contentType = "text/csv"
	case strings.HasSuffix(rel, ".pdf"):
		contentType = "application/pdf"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) dataset(name string) (export.Dataset, *appErrors.Error) {
	entity, ok := h.sup.Lookup(name)
	if !ok {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, "unknown entity "+name)
	}
	data, err := entity.ExportDataset()
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export flatten failed")
	}
	if len(data.Headers) == 0 {
		return export.Dataset{}, appErrors.Validation("entity " + name + " has no data to export")
	}
	return data, nil
}
