package converters

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/feichai0017/resource-ocr/internal/models"
)

// OcrResult is the external view of a resource's OCR state.
type OcrResult struct {
	ID         string     `json:"id"`
	Title      string     `json:"title,omitempty"`
	Mime       string     `json:"mime"`
	Status     string     `json:"status"`
	Encrypted  bool       `json:"encrypted"`
	Text       string     `json:"text,omitempty"`
	Error      string     `json:"error,omitempty"`
	Lines      int        `json:"lines"`
	Characters int        `json:"characters"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// StatusCounts maps status names to resource counts.
type StatusCounts map[string]int

func ToOcrResult(r *models.Resource) *OcrResult {
	res := &OcrResult{
		ID:         r.ID,
		Title:      r.Title,
		Mime:       r.Mime,
		Status:     r.OcrStatus.String(),
		Encrypted:  r.EncryptionApplied,
		Text:       r.OcrText,
		Error:      r.OcrError,
		Characters: utf8.RuneCountInString(r.OcrText),
	}
	if r.OcrText != "" {
		res.Lines = strings.Count(r.OcrText, "\n") + 1
	}
	if !r.UpdatedTime.IsZero() {
		t := r.UpdatedTime
		res.UpdatedAt = &t
	}
	return res
}

// ToStatusCounts names every status, including those with no resources.
func ToStatusCounts(counts map[models.OcrStatus]int) StatusCounts {
	out := StatusCounts{}
	for _, s := range []models.OcrStatus{models.OcrStatusPending, models.OcrStatusDone, models.OcrStatusError} {
		out[s.String()] = counts[s]
	}
	for s, n := range counts {
		out[s.String()] = n
	}
	return out
}
