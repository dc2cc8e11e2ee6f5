package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/petconnect/petconnect-api/models"
)

// ScanResult is what could be read from a vaccination card or prescription.
// Fields stay empty when nothing matched; the owner confirms before saving.
type ScanResult struct {
	Type        string     `json:"type"`
	Name        string     `json:"name,omitempty"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
	NextDueDate *time.Time `json:"next_due_date,omitempty"`
	RawText     string     `json:"raw_text"`
}

// VisionService extracts text from document photos through the OCR function
type VisionService struct {
	url        string
	httpClient *http.Client
}

// NewVisionService creates a vision service posting to url
func NewVisionService(url string) *VisionService {
	return &VisionService{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Extract sends the image and returns the recognised text
func (s *VisionService) Extract(ctx context.Context, image []byte, hint string) (string, error) {
	if s.url == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
		"hint":  hint,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Service: "vision", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UpstreamError{Service: "vision", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Service: "vision", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var parsed struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Service: "vision", Err: err}
	}
	if parsed.Text == nil {
		return "", &ParseError{Service: "vision", Err: fmt.Errorf("missing text")}
	}
	return *parsed.Text, nil
}

// Scan extracts and parses a document photo in one step
func (s *VisionService) Scan(ctx context.Context, image []byte, hint string) (*ScanResult, error) {
	if hint != models.RecordVaccine && hint != models.RecordDeworming {
		return nil, &ValidationError{Field: "type", Message: "scans support vaccine or deworming records"}
	}
	text, err := s.Extract(ctx, image, hint)
	if err != nil {
		return nil, err
	}
	return ParseScan(text, hint), nil
}

var (
	knownVaccines  = []string{"DHPP", "Rabia", "Parvovirus", "Moquillo", "Leptospirosis", "Triple felina", "Leucemia"}
	knownDewormers = []string{"Drontal", "Milbemax", "NexGard", "Bravecto", "Simparica", "Panacur"}

	dayFirstDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	isoDate      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// ParseScan picks the product name and dates out of recognised text. The
// earliest date is taken as the application date and the latest, when
// different, as the next due date.
func ParseScan(text, hint string) *ScanResult {
	result := &ScanResult{Type: hint, RawText: text}

	keywords := knownVaccines
	if hint == models.RecordDeworming {
		keywords = knownDewormers
	}
	lower := strings.ToLower(text)
	for _, name := range keywords {
		if strings.Contains(lower, strings.ToLower(name)) {
			result.Name = name
			break
		}
	}

	dates := findDates(text)
	if len(dates) == 0 {
		return result
	}
	earliest, latest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}
	result.AppliedAt = &earliest
	if latest.After(earliest) {
		result.NextDueDate = &latest
	}
	return result
}

func findDates(text string) []time.Time {
	var dates []time.Time
	for _, m := range isoDate.FindAllString(text, -1) {
		if d, err := time.Parse("2006-01-02", m); err == nil {
			dates = append(dates, d)
		}
	}
	for _, m := range dayFirstDate.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalises 31/02 into March; such text is not a date
		if d.Day() != day || int(d.Month()) != month {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
