package hours

import (
	"testing"
	"time"
)

// mondayAt returns a timestamp on a known Monday (2025-01-06) at the given clock.
func mondayAt(hour, min int) time.Time {
	return time.Date(2025, time.January, 6, hour, min, 0, 0, time.UTC)
}

// weekdaysOnly is open Monday through Friday 08:00-22:00.
func weekdaysOnly() Schedule {
	var s Schedule
	for d := time.Monday; d <= time.Friday; d++ {
		s[d] = DayHours{Open: "08:00", Close: "22:00", IsOpen: true}
	}
	return s
}

func TestEvaluateBoundaries(t *testing.T) {
	sched := weekdaysOnly()

	testCases := []struct {
		name     string
		now      time.Time
		wantOpen bool
		wantMsg  string
	}{
		{
			name:     "one minute before opening",
			now:      mondayAt(7, 59),
			wantOpen: false,
			wantMsg:  "We're closed right now. We open today at 08:00.",
		},
		{
			name:     "exactly at opening",
			now:      mondayAt(8, 0),
			wantOpen: true,
			wantMsg:  "We're open until 22:00.",
		},
		{
			name:     "mid-afternoon",
			now:      mondayAt(15, 30),
			wantOpen: true,
			wantMsg:  "We're open until 22:00.",
		},
		{
			name:     "exactly at close is closed",
			now:      mondayAt(22, 0),
			wantOpen: false,
			wantMsg:  "We're closed right now. We open tomorrow at 08:00.",
		},
		{
			name:     "one minute before close",
			now:      mondayAt(21, 59),
			wantOpen: true,
			wantMsg:  "We're open until 22:00.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(sched, tc.now)
			if got.Open != tc.wantOpen {
				t.Fatalf("Open = %v, want %v", got.Open, tc.wantOpen)
			}
			if got.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tc.wantMsg)
			}
		})
	}
}

func TestEvaluateNextOpenDaySkipsClosedDays(t *testing.T) {
	sched := weekdaysOnly()

	// Friday 23:00: Saturday and Sunday are closed, next open is Monday.
	friday := time.Date(2025, time.January, 10, 23, 0, 0, 0, time.UTC)
	got := Evaluate(sched, friday)
	if got.Open {
		t.Fatal("expected closed on Friday night")
	}
	want := "We're closed right now. We open on Monday at 08:00."
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}

	// Saturday: Sunday is closed, so "on Monday" as well, not "tomorrow".
	saturday := time.Date(2025, time.January, 11, 12, 0, 0, 0, time.UTC)
	got = Evaluate(sched, saturday)
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}

	// Sunday noon: next open day is literally the following day.
	sunday := time.Date(2025, time.January, 5, 12, 0, 0, 0, time.UTC)
	got = Evaluate(sched, sunday)
	wantTomorrow := "We're closed right now. We open tomorrow at 08:00."
	if got.Message != wantTomorrow {
		t.Errorf("Message = %q, want %q", got.Message, wantTomorrow)
	}
}

func TestEvaluateDayMarkedClosedIgnoresItsHours(t *testing.T) {
	sched := weekdaysOnly()
	sched[time.Monday].IsOpen = false

	got := Evaluate(sched, mondayAt(12, 0))
	if got.Open {
		t.Fatal("day with is_open=false must evaluate closed regardless of hours")
	}
	want := "We're closed right now. We open tomorrow at 08:00."
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
}

func TestEvaluateAlwaysClosed(t *testing.T) {
	var sched Schedule
	got := Evaluate(sched, mondayAt(12, 0))
	if got.Open {
		t.Fatal("empty schedule should be closed")
	}
	if got.Message != "We're closed until further notice." {
		t.Errorf("unexpected message: %q", got.Message)
	}
}

func TestEvaluateMalformedClockIsClosed(t *testing.T) {
	var sched Schedule
	sched[time.Monday] = DayHours{Open: "8am", Close: "22:00", IsOpen: true}

	got := Evaluate(sched, mondayAt(12, 0))
	if got.Open {
		t.Fatal("unparseable open time should not evaluate as open")
	}
}

func TestParseClock(t *testing.T) {
	testCases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"08:00", 480, true},
		{"23:59", 1439, true},
		{"24:00", 0, false},
		{"12:60", 0, false},
		{"12", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
	}

	for _, tc := range testCases {
		got, ok := parseClock(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("parseClock(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
