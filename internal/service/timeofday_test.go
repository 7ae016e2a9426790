package service

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseTimeOfDay_AcceptsEveryClockTime(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			raw := fmt.Sprintf("%02d:%02d", h, m)
			tod, err := ParseTimeOfDay(raw)
			if err != nil {
				t.Fatalf("%s rejected: %v", raw, err)
			}
			if tod.Hour != h || tod.Minute != m {
				t.Fatalf("%s parsed as %+v", raw, tod)
			}
			if tod.String() != raw {
				t.Fatalf("%s round-tripped as %s", raw, tod.String())
			}
		}
	}
}

func TestParseTimeOfDay_Rejects(t *testing.T) {
	cases := []string{
		"", "25:00", "24:00", "9:30", "0930", "09:60", "09:3", "9:5",
		"09:30 ", " 09:30", "09:30:00", "9:30 PM", "09h30", "ab:cd", "-1:30", "09:-1",
	}
	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTimeOfDay(raw)
			if err == nil {
				t.Fatalf("expected %q to be rejected", raw)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != "horaires" {
				t.Fatalf("expected ValidationError on horaires, got %v", err)
			}
		})
	}
}

func TestTimeOfDay_CronSpec(t *testing.T) {
	tod, err := ParseTimeOfDay("08:05")
	if err != nil {
		t.Fatal(err)
	}
	if got := tod.CronSpec(); got != "0 5 8 * * *" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestUniqueTimes(t *testing.T) {
	got := uniqueTimes([]string{"08:00", "20:00", " 08:00", "20:00"})
	if len(got) != 2 || got[0] != "08:00" || got[1] != "20:00" {
		t.Fatalf("unexpected %v", got)
	}
}
