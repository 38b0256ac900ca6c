package models

import (
	"fmt"
	"time"
)

// OcrStatus OCR state of a resource
type OcrStatus int

const (
	OcrStatusPending OcrStatus = iota
	OcrStatusDone
	OcrStatusError
)

func (s OcrStatus) String() string {
	switch s {
	case OcrStatusPending:
		return "pending"
	case OcrStatusDone:
		return "done"
	case OcrStatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether s is the outcome of a processing attempt.
func (s OcrStatus) Terminal() bool {
	return s == OcrStatusDone || s == OcrStatusError
}

func (s OcrStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resource is a stored attachment together with its OCR metadata. The
// pipeline only ever reads a projection of it.
type Resource struct {
	ID                string    `json:"id"`
	Title             string    `json:"title,omitempty"`
	Mime              string    `json:"mime"`
	FileExtension     string    `json:"fileExtension,omitempty"`
	EncryptionApplied bool      `json:"encryptionApplied"`
	OcrStatus         OcrStatus `json:"ocrStatus"`
	OcrText           string    `json:"ocrText,omitempty"`
	OcrError          string    `json:"ocrError,omitempty"`
	UpdatedTime       time.Time `json:"updatedTime,omitempty"`
}

// ResourceUpdate is the partial delta written back after a processing
// attempt. Nil fields are left untouched by the store.
type ResourceUpdate struct {
	ID        string
	OcrStatus *OcrStatus
	OcrText   *string
	OcrError  *string
}

// DoneUpdate records a successful recognition and clears any previous error.
func DoneUpdate(id, text string) ResourceUpdate {
	status := OcrStatusDone
	empty := ""
	return ResourceUpdate{
		ID:        id,
		OcrStatus: &status,
		OcrText:   &text,
		OcrError:  &empty,
	}
}

// ErrorUpdate records a failed attempt; OcrText keeps its previous value.
func ErrorUpdate(id, message string) ResourceUpdate {
	status := OcrStatusError
	return ResourceUpdate{
		ID:        id,
		OcrStatus: &status,
		OcrError:  &message,
	}
}

// RecognizeResult output of one recognition call
type RecognizeResult struct {
	Text string `json:"text"`
}

// ProcessingSummary describes one maintenance cycle.
type ProcessingSummary struct {
	CycleID   string        `json:"cycleId"`
	Language  string        `json:"language"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   bool          `json:"skipped"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
