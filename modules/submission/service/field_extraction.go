package service

import (
	"strings"

	resumesModel "github.com/andreypavlenko/jobber/modules/resumes/model"
	"github.com/andreypavlenko/jobber/modules/submission/model"
	usersModel "github.com/andreypavlenko/jobber/modules/users/model"
)

// extractFormData builds the email path's form-fillable fields from the
// parsed CV, falling back to the user profile and finally to splitting the
// email local-part on "." or "_" when the CV carries no name at all.
func extractFormData(cv *resumesModel.ParsedCV, user *usersModel.User) model.FormData {
	data := model.FormData{Email: user.Email}

	if cv != nil {
		data.FirstName, data.LastName = splitName(cv.FullName)
		data.Phone = cv.Phone
		data.City, data.State = splitLocation(cv.Location)
	}

	if data.FirstName == "" && data.LastName == "" {
		data.FirstName, data.LastName = splitName(user.Name)
	}

	if data.FirstName == "" && data.LastName == "" && user.Email != "" {
		data.FirstName, data.LastName = splitEmailLocalPart(user.Email)
	}

	return data
}

func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.Fields(full)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func splitEmailLocalPart(email string) (first, last string) {
	localPart := email
	if idx := strings.Index(email, "@"); idx >= 0 {
		localPart = email[:idx]
	}
	var sep string
	switch {
	case strings.Contains(localPart, "."):
		sep = "."
	case strings.Contains(localPart, "_"):
		sep = "_"
	default:
		return capitalize(localPart), ""
	}
	parts := strings.SplitN(localPart, sep, 2)
	first = capitalize(parts[0])
	if len(parts) > 1 {
		last = capitalize(parts[1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// splitLocation parses a "City, State" (or "City, State, Country") string
// the way a CV's free-text location line is usually formatted.
func splitLocation(location string) (city, state string) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", ""
	}
	parts := strings.Split(location, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
