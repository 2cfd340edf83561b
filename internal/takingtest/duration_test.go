package takingtest

import (
	"testing"
	"time"
)

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"PT2H30M", 150},
		{"PT45M", 45},
		{"PT1H", 60},
		{"PT1H00M", 60},
		{"pt0h5m", 5},
		{"90", 90},
		{" 30 ", 30},
		{"-5", -5},
		{"", 0},
		{"soon", 0},
		{"PT", 0},
	}
	for _, tc := range cases {
		if got := ParseDurationMinutes(tc.in); got != tc.want {
			t.Fatalf("ParseDurationMinutes(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestParseStartTime(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	got, err := ParseStartTime("01/01/2030 09:00", loc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2030, time.January, 1, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := ParseStartTime("2030-01-01T09:00", loc); err == nil {
		t.Fatalf("expected error for ISO layout")
	}
}

func TestDeadline(t *testing.T) {
	loc := time.UTC
	got, err := Deadline("31/12/2029 23:30", "PT1H", loc)
	if err != nil {
		t.Fatalf("deadline: %v", err)
	}
	want := time.Date(2030, time.January, 1, 0, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, err := Deadline("not a date", "PT1H", loc); err == nil {
		t.Fatalf("expected error for bad start time")
	}
}
