// Package models defines the schedule entity for automated lab sheet
// generation and its serialized form.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a schedule.
type Status string

const (
	// StatusActive means the schedule is eligible for generation.
	StatusActive Status = "active"
	// StatusPaused means the schedule is temporarily suspended.
	StatusPaused Status = "paused"
	// StatusDisabled means the schedule is switched off.
	StatusDisabled Status = "disabled"
)

// Defaults applied when a schedule is created without explicit overrides.
const (
	DefaultGenerateBeforeMinutes = 60
	DefaultTemplateID            = "classic"
	DefaultSheetType             = "Practical"
)

// ErrMissingField is returned when a serialized schedule lacks a required field.
var ErrMissingField = errors.New("missing required field")

var dayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Schedule represents one recurring lab-sheet generation rule. The day of
// week uses Monday=0 through Sunday=6.
type Schedule struct {
	ID                     uuid.UUID  `json:"id"`
	ModuleCode             string     `json:"module_code"`
	ModuleName             string     `json:"module_name"`
	DayOfWeek              int        `json:"day_of_week"`
	LabTime                ClockTime  `json:"lab_time"`
	GenerateBeforeMinutes  int        `json:"generate_before_minutes"`
	CurrentPracticalNumber int        `json:"current_practical_number"`
	AutoIncrement          bool       `json:"auto_increment"`
	UseZeroPadding         bool       `json:"use_zero_padding"`
	TemplateID             string     `json:"template_id"`
	SheetType              string     `json:"sheet_type"`
	Status                 Status     `json:"status"`
	SkipDates              []string   `json:"skip_dates"`
	RepeatMode             bool       `json:"repeat_mode"`
	UploadToOneDrive       bool       `json:"upload_to_onedrive"`
	SendConfirmation       bool       `json:"send_confirmation"`
	CreatedAt              time.Time  `json:"created_at"`
	LastGeneratedAt        *time.Time `json:"last_generated_at"`
	LastUpdatedAt          time.Time  `json:"last_updated_at"`
}

// Option overrides a default field value at construction time.
type Option func(*Schedule)

// WithGenerateBefore sets how many minutes before the lab the sheet is generated.
func WithGenerateBefore(minutes int) Option {
	return func(s *Schedule) { s.GenerateBeforeMinutes = minutes }
}

// WithPracticalNumber sets the starting practical number.
func WithPracticalNumber(n int) Option {
	return func(s *Schedule) { s.CurrentPracticalNumber = n }
}

// WithAutoIncrement controls whether the practical number advances after generation.
func WithAutoIncrement(v bool) Option {
	return func(s *Schedule) { s.AutoIncrement = v }
}

// WithZeroPadding controls zero padding of the practical number label.
func WithZeroPadding(v bool) Option {
	return func(s *Schedule) { s.UseZeroPadding = v }
}

// WithTemplate sets the rendering template identifier.
func WithTemplate(id string) Option {
	return func(s *Schedule) { s.TemplateID = id }
}

// WithSheetType sets the sheet label, e.g. "Practical" or "Lab".
func WithSheetType(t string) Option {
	return func(s *Schedule) { s.SheetType = t }
}

// WithRepeatMode re-issues the same practical number on every generation.
func WithRepeatMode(v bool) Option {
	return func(s *Schedule) { s.RepeatMode = v }
}

// WithOneDriveUpload controls the post-generation cloud upload side effect.
func WithOneDriveUpload(v bool) Option {
	return func(s *Schedule) { s.UploadToOneDrive = v }
}

// WithConfirmation controls the post-generation confirmation email side effect.
func WithConfirmation(v bool) Option {
	return func(s *Schedule) { s.SendConfirmation = v }
}

// NewSchedule creates a fully populated schedule with a fresh ID and
// documented defaults. Returns an error if the day of week is outside
// [0,6] or an override produces an invalid field value.
func NewSchedule(moduleCode, moduleName string, dayOfWeek int, labTime ClockTime, opts ...Option) (*Schedule, error) {
	now := time.Now()
	s := &Schedule{
		ID:                     GenerateID(),
		ModuleCode:             moduleCode,
		ModuleName:             moduleName,
		DayOfWeek:              dayOfWeek,
		LabTime:                labTime,
		GenerateBeforeMinutes:  DefaultGenerateBeforeMinutes,
		CurrentPracticalNumber: 1,
		AutoIncrement:          true,
		UseZeroPadding:         true,
		TemplateID:             DefaultTemplateID,
		SheetType:              DefaultSheetType,
		Status:                 StatusActive,
		SkipDates:              []string{},
		UploadToOneDrive:       true,
		SendConfirmation:       true,
		CreatedAt:              now,
		LastUpdatedAt:          now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// GenerateID returns a fresh unique schedule identifier.
func GenerateID() uuid.UUID {
	return uuid.New()
}

// Validate checks the schedule's field invariants.
func (s *Schedule) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week %d out of range [0,6]", s.DayOfWeek)
	}
	if s.GenerateBeforeMinutes < 0 {
		return fmt.Errorf("generate_before_minutes %d must not be negative", s.GenerateBeforeMinutes)
	}
	if s.CurrentPracticalNumber < 1 {
		return fmt.Errorf("current_practical_number %d must be at least 1", s.CurrentPracticalNumber)
	}
	switch s.Status {
	case StatusActive, StatusPaused, StatusDisabled:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	return nil
}

// DayName returns the human-readable weekday, e.g. "Wednesday".
// Panics when DayOfWeek is out of range; construction validates it.
func (s *Schedule) DayName() string {
	return dayNames[s.DayOfWeek]
}

// FormattedTime returns the lab time on a 12-hour clock, e.g. "02:00 PM".
func (s *Schedule) FormattedTime() string {
	return s.LabTime.Format12Hour()
}

// PracticalNumberString returns the practical number label, zero-padded to
// at least two digits when padding is enabled.
func (s *Schedule) PracticalNumberString() string {
	if s.UseZeroPadding {
		return fmt.Sprintf("%02d", s.CurrentPracticalNumber)
	}
	return strconv.Itoa(s.CurrentPracticalNumber)
}

// SheetLabel returns the full sheet label, e.g. "Practical 01".
func (s *Schedule) SheetLabel() string {
	return s.SheetType + " " + s.PracticalNumberString()
}

// IncrementPracticalNumber advances the practical number by one when auto
// increment is on and repeat mode is off. Otherwise it is a no-op and the
// schedule is left untouched.
func (s *Schedule) IncrementPracticalNumber() {
	if s.AutoIncrement && !s.RepeatMode {
		s.CurrentPracticalNumber++
		s.LastUpdatedAt = time.Now()
	}
}

// UpdateLastGenerated records a successful generation at the current time.
func (s *Schedule) UpdateLastGenerated() {
	now := time.Now()
	s.LastGeneratedAt = &now
	s.LastUpdatedAt = now
}

// IsActive reports whether the schedule is in the active state.
func (s *Schedule) IsActive() bool {
	return s.Status == StatusActive
}

// Pause moves the schedule to the paused state.
func (s *Schedule) Pause() {
	s.Status = StatusPaused
	s.LastUpdatedAt = time.Now()
}

// Resume moves the schedule back to the active state.
func (s *Schedule) Resume() {
	s.Status = StatusActive
	s.LastUpdatedAt = time.Now()
}

// Disable switches the schedule off.
func (s *Schedule) Disable() {
	s.Status = StatusDisabled
	s.LastUpdatedAt = time.Now()
}

// HasSkipDate reports whether the given ISO date ("2006-01-02") is marked
// to be skipped.
func (s *Schedule) HasSkipDate(date string) bool {
	for _, d := range s.SkipDates {
		if d == date {
			return true
		}
	}
	return false
}

// scheduleWire is the serialized schedule shape. Pointer fields distinguish
// absent keys from zero values so older files decode with stable defaults.
type scheduleWire struct {
	ID                     *uuid.UUID `json:"id"`
	ModuleCode             *string    `json:"module_code"`
	ModuleName             *string    `json:"module_name"`
	DayOfWeek              *int       `json:"day_of_week"`
	LabTime                *ClockTime `json:"lab_time"`
	GenerateBeforeMinutes  *int       `json:"generate_before_minutes"`
	CurrentPracticalNumber *int       `json:"current_practical_number"`
	AutoIncrement          *bool      `json:"auto_increment"`
	UseZeroPadding         *bool      `json:"use_zero_padding"`
	TemplateID             *string    `json:"template_id"`
	SheetType              *string    `json:"sheet_type"`
	Status                 *Status    `json:"status"`
	SkipDates              []string   `json:"skip_dates"`
	RepeatMode             *bool      `json:"repeat_mode"`
	UploadToOneDrive       *bool      `json:"upload_to_onedrive"`
	SendConfirmation       *bool      `json:"send_confirmation"`
	CreatedAt              *time.Time `json:"created_at"`
	LastGeneratedAt        *time.Time `json:"last_generated_at"`
	LastUpdatedAt          *time.Time `json:"last_updated_at"`
}

// UnmarshalJSON decodes a serialized schedule. Required fields (id, module
// code and name, day of week, lab time) produce an error when absent;
// optional fields fall back to the construction defaults so files written
// by older versions keep loading.
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var w scheduleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.ID == nil:
		return fmt.Errorf("%w: id", ErrMissingField)
	case w.ModuleCode == nil:
		return fmt.Errorf("%w: module_code", ErrMissingField)
	case w.ModuleName == nil:
		return fmt.Errorf("%w: module_name", ErrMissingField)
	case w.DayOfWeek == nil:
		return fmt.Errorf("%w: day_of_week", ErrMissingField)
	case w.LabTime == nil:
		return fmt.Errorf("%w: lab_time", ErrMissingField)
	}

	out := Schedule{
		ID:                     *w.ID,
		ModuleCode:             *w.ModuleCode,
		ModuleName:             *w.ModuleName,
		DayOfWeek:              *w.DayOfWeek,
		LabTime:                *w.LabTime,
		GenerateBeforeMinutes:  DefaultGenerateBeforeMinutes,
		CurrentPracticalNumber: 1,
		AutoIncrement:          true,
		UseZeroPadding:         true,
		TemplateID:             DefaultTemplateID,
		SheetType:              DefaultSheetType,
		Status:                 StatusActive,
		SkipDates:              []string{},
		UploadToOneDrive:       true,
		SendConfirmation:       true,
		LastGeneratedAt:        w.LastGeneratedAt,
	}

	if w.GenerateBeforeMinutes != nil {
		out.GenerateBeforeMinutes = *w.GenerateBeforeMinutes
	}
	if w.CurrentPracticalNumber != nil {
		out.CurrentPracticalNumber = *w.CurrentPracticalNumber
	}
	if w.AutoIncrement != nil {
		out.AutoIncrement = *w.AutoIncrement
	}
	if w.UseZeroPadding != nil {
		out.UseZeroPadding = *w.UseZeroPadding
	}
	if w.TemplateID != nil {
		out.TemplateID = *w.TemplateID
	}
	if w.SheetType != nil {
		out.SheetType = *w.SheetType
	}
	if w.Status != nil {
		out.Status = *w.Status
	}
	if w.SkipDates != nil {
		out.SkipDates = w.SkipDates
	}
	if w.RepeatMode != nil {
		out.RepeatMode = *w.RepeatMode
	}
	if w.UploadToOneDrive != nil {
		out.UploadToOneDrive = *w.UploadToOneDrive
	}
	if w.SendConfirmation != nil {
		out.SendConfirmation = *w.SendConfirmation
	}

	now := time.Now()
	if w.CreatedAt != nil {
		out.CreatedAt = *w.CreatedAt
	} else {
		out.CreatedAt = now
	}
	if w.LastUpdatedAt != nil {
		out.LastUpdatedAt = *w.LastUpdatedAt
	} else {
		out.LastUpdatedAt = now
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*s = out
	return nil
}
