package service

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"signaltracker/backend/services/dashboard-gateway/internal/clients"
	"signaltracker/backend/services/dashboard-gateway/internal/models"
)

// Upload file types.
const (
	FileTypeSession    = 1
	FileTypePrediction = 2
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 100 << 20

// ErrInvalidUpload is returned for uploads that must not reach the backend.
var ErrInvalidUpload = errors.New("upload: invalid upload")

var (
	dataExtensions    = []string{".csv", ".zip"}
	polygonExtensions = []string{".zip", ".geojson", ".json"}
	latHeaders        = []string{"lat", "latitude", "start_lat"}
	lonHeaders        = []string{"lon", "lng", "long", "longitude", "start_lon"}
	templateNames     = map[int]string{
		FileTypeSession:    "Session_Template.zip",
		FileTypePrediction: "Prediction_Template.zip",
	}
	utf8BOM = []byte{0xef, 0xbb, 0xbf}
)

// UploadAPI is the backend upload surface.
type UploadAPI interface {
	UploadFile(ctx context.Context, body []byte, contentType string) (*clients.Envelope, error)
	DownloadTemplate(ctx context.Context, fileType int) (*clients.Blob, error)
	UploadedFiles(ctx context.Context, fileType int) ([]models.UploadedFile, error)
	Sessions(ctx context.Context, from, to time.Time) ([]json.RawMessage, error)
}

// UploadFile is one file part of an upload.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadRequest is a parsed upload form.
type UploadRequest struct {
	File        UploadFile
	Polygon     *UploadFile
	FileType    int
	Remarks     string
	ProjectName string
	SessionIDs  string
}

// UploadService validates uploads and forwards them to the backend.
type UploadService struct {
	api    UploadAPI
	logger *zap.Logger
}

// NewUploadService returns service.
func NewUploadService(api UploadAPI, logger *zap.Logger) *UploadService {
	return &UploadService{api: api, logger: logger}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidUpload, fmt.Sprintf(format, args...))
}

// ReadUploadForm extracts an UploadRequest from a parsed multipart form.
func ReadUploadForm(form *multipart.Form) (*UploadRequest, error) {
	if form == nil {
		return nil, invalid("empty form")
	}
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req := &UploadRequest{
		Remarks:     value("remarks"),
		ProjectName: value("ProjectName"),
		SessionIDs:  value("SessionIds"),
	}
	fileType, err := strconv.Atoi(value("UploadFileType"))
	if err != nil {
		return nil, invalid("UploadFileType must be 1 or 2")
	}
	req.FileType = fileType

	file, err := readPart(form, "UploadFile")
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, invalid("UploadFile is required")
	}
	req.File = *file

	if req.Polygon, err = readPart(form, "UploadNoteFile"); err != nil {
		return nil, err
	}
	return req, nil
}

func readPart(form *multipart.Form, key string) (*UploadFile, error) {
	headers := form.File[key]
	if len(headers) == 0 {
		return nil, nil
	}
	h := headers[0]
	if h.Size > MaxUploadBytes {
		return nil, invalid("%s exceeds %s", h.Filename, humanize.IBytes(MaxUploadBytes))
	}
	f, err := h.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return &UploadFile{Name: h.Filename, Data: data}, nil
}

// Validate checks the request the way the backend would, plus a header sniff
// of CSV data files.
func (r *UploadRequest) Validate() error {
	if r.FileType != FileTypeSession && r.FileType != FileTypePrediction {
		return invalid("UploadFileType must be 1 or 2")
	}
	if r.FileType == FileTypePrediction && r.ProjectName == "" {
		return invalid("ProjectName is required for prediction uploads")
	}
	if len(r.File.Data) == 0 {
		return invalid("UploadFile is empty")
	}
	if len(r.File.Data) > MaxUploadBytes {
		return invalid("%s exceeds %s", r.File.Name, humanize.IBytes(MaxUploadBytes))
	}

	switch ext := extension(r.File.Name); ext {
	case ".csv":
		if err := SniffCoordinates(r.File.Data); err != nil {
			return err
		}
	case ".zip":
		if err := checkZip(r.File.Data); err != nil {
			return err
		}
	default:
		return invalid("UploadFile must be one of %s", strings.Join(dataExtensions, ", "))
	}

	if r.Polygon != nil {
		if !hasExtension(r.Polygon.Name, polygonExtensions) {
			return invalid("UploadNoteFile must be one of %s", strings.Join(polygonExtensions, ", "))
		}
		if len(r.Polygon.Data) > MaxUploadBytes {
			return invalid("%s exceeds %s", r.Polygon.Name, humanize.IBytes(MaxUploadBytes))
		}
	}
	return nil
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

func hasExtension(name string, allowed []string) bool {
	ext := extension(name)
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func checkZip(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return invalid("not a zip archive")
	}
	if len(zr.File) == 0 {
		return invalid("zip archive is empty")
	}
	return nil
}

// SniffCoordinates reads the CSV header row, as UTF-8 or Windows-1252, and
// requires a latitude and a longitude column.
func SniffCoordinates(data []byte) error {
	line, err := bufio.NewReader(bytes.NewReader(data)).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return invalid("unreadable CSV header")
	}
	line = bytes.TrimPrefix(line, utf8BOM)
	if !utf8.Valid(line) {
		if line, err = charmap.Windows1252.NewDecoder().Bytes(line); err != nil {
			return invalid("CSV header is neither UTF-8 nor Windows-1252")
		}
	}

	header, err := csv.NewReader(bytes.NewReader(line)).Read()
	if err != nil {
		return invalid("unreadable CSV header")
	}
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = true
	}
	if !anyOf(cols, latHeaders) || !anyOf(cols, lonHeaders) {
		return invalid("CSV must contain latitude and longitude columns")
	}
	return nil
}

func anyOf(cols map[string]bool, names []string) bool {
	for _, n := range names {
		if cols[n] {
			return true
		}
	}
	return false
}

// Encode rebuilds the multipart body in the field layout the backend reads.
func (r *UploadRequest) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	writeFile := func(field string, f UploadFile) error {
		part, err := mw.CreateFormFile(field, filepath.Base(f.Name))
		if err != nil {
			return err
		}
		_, err = part.Write(f.Data)
		return err
	}
	if err := writeFile("UploadFile", r.File); err != nil {
		return nil, "", err
	}
	if r.Polygon != nil {
		if err := writeFile("UploadNoteFile", *r.Polygon); err != nil {
			return nil, "", err
		}
	}

	fields := [][2]string{
		{"UploadFileType", strconv.Itoa(r.FileType)},
		{"remarks", r.Remarks},
		{"ProjectName", r.ProjectName},
		{"SessionIds", r.SessionIDs},
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// Upload validates and forwards the request.
func (s *UploadService) Upload(ctx context.Context, req *UploadRequest) (*clients.Envelope, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, contentType, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	start := time.Now()
	env, err := s.api.UploadFile(ctx, body, contentType)
	if err != nil {
		return nil, err
	}
	if !env.OK() {
		msg := env.Message
		if msg == "" {
			msg = "backend did not accept the file"
		}
		return env, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	s.logger.Info("upload forwarded",
		zap.String("file", req.File.Name),
		zap.Int("file_type", req.FileType),
		zap.String("size", humanize.Bytes(uint64(len(req.File.Data)))),
		zap.Duration("took", time.Since(start)),
	)
	return env, nil
}

// Template downloads the template archive of a file type.
func (s *UploadService) Template(ctx context.Context, fileType int) (*clients.Blob, error) {
	name, ok := templateNames[fileType]
	if !ok {
		return nil, invalid("unknown file type %d", fileType)
	}
	blob, err := s.api.DownloadTemplate(ctx, fileType)
	if err != nil {
		return nil, err
	}
	if blob.Filename == "" {
		blob.Filename = name
	}
	if blob.ContentType == "" || strings.HasPrefix(blob.ContentType, "application/json") {
		blob.ContentType = "application/zip"
	}
	return blob, nil
}

// UploadedFiles lists the upload history.
func (s *UploadService) UploadedFiles(ctx context.Context, fileType int) ([]models.UploadedFile, error) {
	if _, ok := templateNames[fileType]; !ok {
		return nil, invalid("unknown file type %d", fileType)
	}
	return s.api.UploadedFiles(ctx, fileType)
}

// Sessions lists sessions selectable for an upload between two local dates;
// the end date is inclusive up to its last millisecond.
func (s *UploadService) Sessions(ctx context.Context, from, to time.Time) ([]json.RawMessage, error) {
	from = startOfDay(from)
	to = startOfDay(to).AddDate(0, 0, 1).Add(-time.Millisecond)
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	return s.api.Sessions(ctx, from, to)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
