package services

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"citymap-backend-go/internal/models"
)

const maxTitleLength = 255

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	phoneRe      = regexp.MustCompile(`^[\d\s+\-()]+$`)
)

func ParseContentClass(raw string) (models.ContentClass, error) {
	switch class := models.ContentClass(strings.ToLower(strings.TrimSpace(raw))); class {
	case models.ClassReport, models.ClassCuriosity, models.ClassPlace:
		return class, nil
	}
	return "", ErrValidation("Unknown content type")
}

func ParseReportStatus(raw string) (models.ReportStatus, error) {
	switch status := models.ReportStatus(raw); status {
	case models.ReportAdded, models.ReportNeedsBetterDocumentation, models.ReportReported, models.ReportResolved:
		return status, nil
	}
	return "", ErrValidation("Unknown report status")
}

func NormalizeRequired(value, message string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", ErrValidation(message)
	}
	return trimmed, nil
}

// CleanLine collapses internal whitespace of a single-line value.
func CleanLine(value string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(value), " ")
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateTitle(raw string) (string, error) {
	title, err := NormalizeRequired(CleanLine(raw), "Title is required")
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", ErrValidation("Title is too long")
	}
	return title, nil
}

func validateCoordinates(lat, lng float64) error {
	if lat == 0 || lng == 0 {
		return ErrValidation("Location is required")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrValidation("Location is out of range")
	}
	return nil
}

func validateWebsite(value *string) error {
	if value == nil {
		return nil
	}
	parsed, err := url.Parse(*value)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ErrValidation("Website must be an http or https address")
	}
	return nil
}

func validatePhone(value *string) error {
	if value == nil {
		return nil
	}
	if !phoneRe.MatchString(*value) {
		return ErrValidation("Phone number contains invalid characters")
	}
	return nil
}

func validateCategory(class models.ContentClass, category *string) error {
	if class != models.ClassReport {
		if category != nil {
			return ErrValidation("Only reports have a category")
		}
		return nil
	}
	if category == nil {
		return ErrValidation("Report category is required")
	}
	if !IsReportCategory(*category) {
		return ErrValidation("Unknown report category")
	}
	return nil
}

// cleanFields trims every present field. Blank optional fields become
// explicit clears.
func cleanFields(f models.PointFields) models.PointFields {
	out := f
	if f.Title != nil {
		out.Title = strPtr(CleanLine(*f.Title))
	}
	if f.Content != nil {
		out.Content = strPtr(strings.TrimSpace(*f.Content))
	}
	if f.Category != nil {
		out.Category = strPtr(strings.TrimSpace(*f.Category))
	}
	for _, field := range []**string{&out.Address, &out.Website, &out.Phone} {
		if *field != nil {
			*field = strPtr(strings.TrimSpace(**field))
		}
	}
	return out
}

func CleanText(value string) string {
	return strings.TrimSpace(value)
}
