package model

// ReportData is the payload submitted for PDF report generation. Field
// names follow the frontend's JSON contract.
type ReportData struct {
	ProjectName  string        `json:"projectName"`
	ReportNumber string        `json:"reportNumber"`
	Subject      string        `json:"subject"`
	Description  string        `json:"description"`
	Action       string        `json:"action"`
	Images       []ReportImage `json:"images"`
}

// ReportImage is one photo attached to a report. DataURL carries the image
// as a base64 data URL; Caption is the generated or user-edited caption.
type ReportImage struct {
	DataURL string `json:"dataUrl"`
	Caption string `json:"caption"`
}
