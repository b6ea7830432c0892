package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func mustClockTime(t *testing.T, hour, minute int) ClockTime {
	t.Helper()
	ct, err := NewClockTime(hour, minute)
	if err != nil {
		t.Fatalf("NewClockTime(%d, %d) error: %v", hour, minute, err)
	}
	return ct
}

func newTestSchedule(t *testing.T, opts ...Option) *Schedule {
	t.Helper()
	s, err := NewSchedule("CS2023", "Operating Systems", 2, mustClockTime(t, 14, 0), opts...)
	if err != nil {
		t.Fatalf("NewSchedule() error: %v", err)
	}
	return s
}

func TestNewSchedule_Defaults(t *testing.T) {
	s := newTestSchedule(t)

	if s.ID.String() == "" {
		t.Error("expected generated ID")
	}
	if s.GenerateBeforeMinutes != 60 {
		t.Errorf("GenerateBeforeMinutes = %d, want 60", s.GenerateBeforeMinutes)
	}
	if s.CurrentPracticalNumber != 1 {
		t.Errorf("CurrentPracticalNumber = %d, want 1", s.CurrentPracticalNumber)
	}
	if !s.AutoIncrement || !s.UseZeroPadding {
		t.Error("expected auto_increment and use_zero_padding to default to true")
	}
	if s.TemplateID != "classic" || s.SheetType != "Practical" {
		t.Errorf("TemplateID=%q SheetType=%q, want classic/Practical", s.TemplateID, s.SheetType)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %q, want active", s.Status)
	}
	if s.SkipDates == nil || len(s.SkipDates) != 0 {
		t.Errorf("SkipDates = %v, want empty non-nil slice", s.SkipDates)
	}
	if s.RepeatMode {
		t.Error("RepeatMode should default to false")
	}
	if !s.UploadToOneDrive || !s.SendConfirmation {
		t.Error("expected upload and confirmation side effects to default to true")
	}
	if s.CreatedAt.IsZero() || s.LastUpdatedAt.IsZero() {
		t.Error("expected created_at and last_updated_at to be set")
	}
	if s.LastGeneratedAt != nil {
		t.Error("LastGeneratedAt should start nil")
	}
}

func TestNewSchedule_Validation(t *testing.T) {
	tests := []struct {
		name      string
		dayOfWeek int
		opts      []Option
		wantErr   bool
	}{
		{name: "valid monday", dayOfWeek: 0},
		{name: "valid sunday", dayOfWeek: 6},
		{name: "day too small", dayOfWeek: -1, wantErr: true},
		{name: "day too large", dayOfWeek: 7, wantErr: true},
		{name: "negative generate before", dayOfWeek: 2, opts: []Option{WithGenerateBefore(-5)}, wantErr: true},
		{name: "zero practical number", dayOfWeek: 2, opts: []Option{WithPracticalNumber(0)}, wantErr: true},
		{name: "override practical number", dayOfWeek: 2, opts: []Option{WithPracticalNumber(7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule("SE3040", "SPM", tt.dayOfWeek, ClockTime{Hour: 10}, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSchedule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID().String()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestParseClockTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ClockTime
		wantErr bool
	}{
		{input: "14:00", want: ClockTime{Hour: 14}},
		{input: "09:05", want: ClockTime{Hour: 9, Minute: 5}},
		{input: "0:0", want: ClockTime{}},
		{input: "23:59", want: ClockTime{Hour: 23, Minute: 59}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "12", wantErr: true},
		{input: "12:00:00", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClockTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClockTime(%q) expected error", tt.input)
				}
				if !errors.Is(err, ErrInvalidTimeFormat) {
					t.Errorf("error = %v, want ErrInvalidTimeFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClockTime(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClockTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDayName(t *testing.T) {
	want := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for day := 0; day <= 6; day++ {
		s := &Schedule{DayOfWeek: day}
		if got := s.DayName(); got != want[day] {
			t.Errorf("DayName(%d) = %q, want %q", day, got, want[day])
		}
	}
}

func TestFormattedTime(t *testing.T) {
	tests := []struct {
		time ClockTime
		want string
	}{
		{ClockTime{Hour: 14}, "02:00 PM"},
		{ClockTime{Hour: 0, Minute: 30}, "12:30 AM"},
		{ClockTime{Hour: 12}, "12:00 PM"},
		{ClockTime{Hour: 9, Minute: 15}, "09:15 AM"},
	}
	for _, tt := range tests {
		s := &Schedule{LabTime: tt.time}
		if got := s.FormattedTime(); got != tt.want {
			t.Errorf("FormattedTime(%v) = %q, want %q", tt.time, got, tt.want)
		}
	}
}

func TestPracticalNumberString(t *testing.T) {
	tests := []struct {
		number  int
		padding bool
		want    string
	}{
		{1, true, "01"},
		{1, false, "1"},
		{12, true, "12"},
		{15, false, "15"},
		{100, true, "100"},
		{100, false, "100"},
	}
	for _, tt := range tests {
		s := &Schedule{CurrentPracticalNumber: tt.number, UseZeroPadding: tt.padding}
		if got := s.PracticalNumberString(); got != tt.want {
			t.Errorf("PracticalNumberString(n=%d, pad=%v) = %q, want %q", tt.number, tt.padding, got, tt.want)
		}
	}
}

func TestSheetLabel(t *testing.T) {
	s := &Schedule{SheetType: "Lab", CurrentPracticalNumber: 3, UseZeroPadding: true}
	if got := s.SheetLabel(); got != "Lab 03" {
		t.Errorf("SheetLabel() = %q, want %q", got, "Lab 03")
	}
}

func TestIncrementPracticalNumber(t *testing.T) {
	tests := []struct {
		name          string
		autoIncrement bool
		repeatMode    bool
		wantNumber    int
		wantTouched   bool
	}{
		{name: "increments", autoIncrement: true, repeatMode: false, wantNumber: 6, wantTouched: true},
		{name: "auto increment off", autoIncrement: false, repeatMode: false, wantNumber: 5},
		{name: "repeat mode on", autoIncrement: true, repeatMode: true, wantNumber: 5},
		{name: "both off", autoIncrement: false, repeatMode: true, wantNumber: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			s := &Schedule{
				CurrentPracticalNumber: 5,
				AutoIncrement:          tt.autoIncrement,
				RepeatMode:             tt.repeatMode,
				LastUpdatedAt:          stamp,
			}
			s.IncrementPracticalNumber()

			if s.CurrentPracticalNumber != tt.wantNumber {
				t.Errorf("CurrentPracticalNumber = %d, want %d", s.CurrentPracticalNumber, tt.wantNumber)
			}
			touched := !s.LastUpdatedAt.Equal(stamp)
			if touched != tt.wantTouched {
				t.Errorf("LastUpdatedAt touched = %v, want %v", touched, tt.wantTouched)
			}
		})
	}
}

func TestUpdateLastGenerated(t *testing.T) {
	s := newTestSchedule(t)
	before := time.Now()
	s.UpdateLastGenerated()

	if s.LastGeneratedAt == nil {
		t.Fatal("LastGeneratedAt not set")
	}
	if s.LastGeneratedAt.Before(before) {
		t.Error("LastGeneratedAt is in the past")
	}
	if !s.LastUpdatedAt.Equal(*s.LastGeneratedAt) {
		t.Error("LastUpdatedAt should match LastGeneratedAt")
	}
}

func TestStatusTransitions(t *testing.T) {
	s := newTestSchedule(t)

	if !s.IsActive() {
		t.Fatal("new schedule should be active")
	}

	s.Pause()
	if s.Status != StatusPaused || s.IsActive() {
		t.Errorf("after Pause() status = %q", s.Status)
	}

	// pausing an already paused schedule stays paused but still touches the
	// update timestamp
	stamp := s.LastUpdatedAt
	time.Sleep(time.Millisecond)
	s.Pause()
	if s.Status != StatusPaused {
		t.Errorf("after second Pause() status = %q", s.Status)
	}
	if !s.LastUpdatedAt.After(stamp) {
		t.Error("second Pause() should refresh LastUpdatedAt")
	}

	s.Resume()
	if !s.IsActive() {
		t.Errorf("after Resume() status = %q", s.Status)
	}

	s.Disable()
	if s.Status != StatusDisabled || s.IsActive() {
		t.Errorf("after Disable() status = %q", s.Status)
	}
}

func TestSchedule_JSONRoundTrip(t *testing.T) {
	s := newTestSchedule(t,
		WithGenerateBefore(30),
		WithPracticalNumber(4),
		WithZeroPadding(false),
		WithTemplate("sliit"),
		WithSheetType("Lab"),
		WithRepeatMode(true),
		WithOneDriveUpload(false),
		WithConfirmation(false),
	)
	s.SkipDates = []string{"2026-09-02", "2026-09-09"}
	s.UpdateLastGenerated()

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"lab_time":"14:00"`) {
		t.Errorf("lab_time not serialized as HH:MM: %s", data)
	}

	var got Schedule
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if got.ID != s.ID {
		t.Errorf("ID = %v, want %v", got.ID, s.ID)
	}
	if got.LabTime != s.LabTime {
		t.Errorf("LabTime = %v, want %v", got.LabTime, s.LabTime)
	}
	if got.GenerateBeforeMinutes != 30 || got.CurrentPracticalNumber != 4 {
		t.Errorf("numeric fields lost: %+v", got)
	}
	if got.UseZeroPadding || !got.RepeatMode || got.UploadToOneDrive || got.SendConfirmation {
		t.Errorf("boolean flags lost: %+v", got)
	}
	if got.TemplateID != "sliit" || got.SheetType != "Lab" {
		t.Errorf("template fields lost: %+v", got)
	}
	if len(got.SkipDates) != 2 || got.SkipDates[0] != "2026-09-02" {
		t.Errorf("SkipDates = %v", got.SkipDates)
	}
	if got.LastGeneratedAt == nil || !got.LastGeneratedAt.Equal(*s.LastGeneratedAt) {
		t.Errorf("LastGeneratedAt = %v, want %v", got.LastGeneratedAt, s.LastGeneratedAt)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) || !got.LastUpdatedAt.Equal(s.LastUpdatedAt) {
		t.Error("timestamps lost in round trip")
	}
}

func TestSchedule_UnmarshalDefaultsMissingOptionals(t *testing.T) {
	// shape written by an older version: no skip_dates, repeat_mode,
	// upload_to_onedrive or send_confirmation keys
	raw := `{
		"id": "7a3d73d4-3e6b-44e2-a1a3-51725ae06e2b",
		"module_code": "CS2023",
		"module_name": "Operating Systems",
		"day_of_week": 2,
		"lab_time": "14:00",
		"generate_before_minutes": 45,
		"current_practical_number": 3,
		"auto_increment": false,
		"use_zero_padding": false,
		"template_id": "sliit",
		"sheet_type": "Lab",
		"status": "paused",
		"created_at": "2026-01-05T09:00:00Z",
		"last_updated_at": "2026-02-01T10:30:00Z"
	}`

	var s Schedule
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if s.SkipDates == nil || len(s.SkipDates) != 0 {
		t.Errorf("SkipDates = %v, want empty slice", s.SkipDates)
	}
	if s.RepeatMode {
		t.Error("RepeatMode should default to false")
	}
	if !s.UploadToOneDrive {
		t.Error("UploadToOneDrive should default to true")
	}
	if !s.SendConfirmation {
		t.Error("SendConfirmation should default to true")
	}
	// present fields must not be touched by defaulting
	if s.GenerateBeforeMinutes != 45 || s.CurrentPracticalNumber != 3 {
		t.Errorf("present fields overwritten: %+v", s)
	}
	if s.AutoIncrement || s.UseZeroPadding {
		t.Error("explicit false booleans overwritten by defaults")
	}
	if s.Status != StatusPaused {
		t.Errorf("Status = %q, want paused", s.Status)
	}
}

func TestSchedule_UnmarshalMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no id", raw: `{"module_code":"CS","module_name":"OS","day_of_week":1,"lab_time":"10:00"}`},
		{name: "no module_code", raw: `{"id":"7a3d73d4-3e6b-44e2-a1a3-51725ae06e2b","module_name":"OS","day_of_week":1,"lab_time":"10:00"}`},
		{name: "no lab_time", raw: `{"id":"7a3d73d4-3e6b-44e2-a1a3-51725ae06e2b","module_code":"CS","module_name":"OS","day_of_week":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Schedule
			err := json.Unmarshal([]byte(tt.raw), &s)
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("error = %v, want ErrMissingField", err)
			}
		})
	}
}

func TestSchedule_UnmarshalMalformedLabTime(t *testing.T) {
	raw := `{"id":"7a3d73d4-3e6b-44e2-a1a3-51725ae06e2b","module_code":"CS","module_name":"OS","day_of_week":1,"lab_time":"ten o'clock"}`
	var s Schedule
	err := json.Unmarshal([]byte(raw), &s)
	if !errors.Is(err, ErrInvalidTimeFormat) {
		t.Errorf("error = %v, want ErrInvalidTimeFormat", err)
	}
}

func TestHasSkipDate(t *testing.T) {
	s := &Schedule{SkipDates: []string{"2026-09-02"}}
	if !s.HasSkipDate("2026-09-02") {
		t.Error("expected skip date to be found")
	}
	if s.HasSkipDate("2026-09-09") {
		t.Error("unexpected skip date match")
	}
}
