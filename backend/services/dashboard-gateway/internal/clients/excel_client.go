package clients

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// Blob is a non-JSON download.
type Blob struct {
	ContentType string
	Filename    string
	Data        []byte
}

// ExcelClient calls the backend ExcelUpload controller.
type ExcelClient struct {
	base *BaseClient
}

// NewExcelClient returns client.
func NewExcelClient(base *BaseClient) *ExcelClient {
	return &ExcelClient{base: base}
}

// UploadFile forwards a prepared multipart body.
func (c *ExcelClient) UploadFile(ctx context.Context, body []byte, contentType string) (*Envelope, error) {
	var env Envelope
	err := c.base.PostMultipart(ctx, "/ExcelUpload/UploadExcelFile", body, contentType, &env)
	return &env, err
}

// DownloadTemplate fetches the template archive of a file type.
func (c *ExcelClient) DownloadTemplate(ctx context.Context, fileType int) (*Blob, error) {
	query := url.Values{"FileType": {strconv.Itoa(fileType)}}
	resp, err := c.base.Call(ctx, http.MethodGet, "/ExcelUpload/DownloadExcel", query, nil, nil)
	if err != nil {
		return nil, err
	}
	blob := &Blob{ContentType: resp.ContentType, Data: resp.Body}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		blob.Filename = params["filename"]
	}
	return blob, nil
}

// UploadedFiles lists the upload history of a file type.
func (c *ExcelClient) UploadedFiles(ctx context.Context, fileType int) ([]models.UploadedFile, error) {
	query := url.Values{"FileType": {strconv.Itoa(fileType)}}
	resp, err := c.base.Call(ctx, http.MethodGet, "/ExcelUpload/GetUploadedExcelFiles", query, nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[models.UploadedFile](resp.Body)
}

// Sessions lists sessions selectable for an upload, by ISO-8601 UTC range.
func (c *ExcelClient) Sessions(ctx context.Context, from, to time.Time) ([]json.RawMessage, error) {
	query := url.Values{
		"fromDate": {from.UTC().Format("2006-01-02T15:04:05.000Z")},
		"toDate":   {to.UTC().Format("2006-01-02T15:04:05.000Z")},
	}
	resp, err := c.base.Call(ctx, http.MethodGet, "/api/excel/sessions", query, nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeList[json.RawMessage](resp.Body)
}
