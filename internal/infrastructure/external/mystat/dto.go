package mystat

import (
	"encoding/json"

	"github.com/mystat-hub/mystat-reminder-bot/internal/domain/schedule"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST TYPES
// ══════════════════════════════════════════════════════════════════════════════

// loginRequest is the auth/login payload. IDCity is always serialized as an
// explicit null, matching the journal web client.
type loginRequest struct {
	ApplicationKey string `json:"application_key"`
	IDCity         *int   `json:"id_city"`
	Username       string `json:"username"`
	Password       string `json:"password"`
}

// refreshRequest is the auth/refresh payload.
type refreshRequest struct {
	RefreshToken   string `json:"refresh_token"`
	ApplicationKey string `json:"application_key"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// AuthResponse is the token triple returned by login and refresh.
type AuthResponse struct {
	AccessToken     string          `json:"access_token"`
	RefreshToken    string          `json:"refresh_token"`
	ExpiresInAccess int64           `json:"expires_in_access"` // seconds
	CityData        json.RawMessage `json:"city_data"`         // opaque, stored verbatim
}

// CityDataString returns the opaque city blob as stored in the session record.
func (a *AuthResponse) CityDataString() string {
	if len(a.CityData) == 0 {
		return ""
	}
	return string(a.CityData)
}

// LessonDTO is one entry of the schedule-by-date response.
type LessonDTO struct {
	Lesson     int    `json:"lesson"`
	StartedAt  string `json:"started_at"`  // "HH:MM"
	FinishedAt string `json:"finished_at"` // "HH:MM"
	Subject    string `json:"subject_name"`
	Teacher    string `json:"teacher_name"`
	Room       string `json:"room_name"`
}

// ToDomain maps the DTO onto the domain lesson value.
func (d LessonDTO) ToDomain() schedule.Lesson {
	return schedule.Lesson{
		Ordinal:  d.Lesson,
		StartsAt: d.StartedAt,
		EndsAt:   d.FinishedAt,
		Subject:  d.Subject,
		Teacher:  d.Teacher,
		Room:     d.Room,
	}
}
