package models

// Project is a planning project that may carry polygons.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"project_name"`
}

// ProjectPolygon is a project polygon row with WKT geometry.
type ProjectPolygon struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	WKT  string `json:"wkt"`
}

// UploadedFile is one upload history row.
type UploadedFile struct {
	ID         int64  `json:"id"`
	FileName   string `json:"file_name"`
	FileType   int    `json:"file_type"`
	Remarks    string `json:"remarks"`
	UploadedOn string `json:"uploaded_on"`
	UploadedBy string `json:"uploaded_by"`
	Status     string `json:"status"`
}
