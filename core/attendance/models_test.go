package attendance

import (
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	recs := func(statuses ...string) []Attendance {
		out := make([]Attendance, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, Attendance{Status: s})
		}
		return out
	}

	tests := []struct {
		name    string
		records []Attendance
		want    int
	}{
		{name: "no records", records: nil, want: 0},
		{name: "all present", records: recs(StatusPresent, StatusPresent), want: 100},
		{name: "all absent", records: recs(StatusAbsent, StatusAbsent), want: 0},
		{name: "3 present 1 absent", records: recs(StatusPresent, StatusPresent, StatusPresent, StatusAbsent), want: 75},
		{name: "late counts as attended", records: recs(StatusLate, StatusAbsent), want: 50},
		{name: "rounds to nearest", records: recs(StatusPresent, StatusPresent, StatusAbsent), want: 67},
		{name: "rounds down", records: recs(StatusPresent, StatusAbsent, StatusAbsent), want: 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.records); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	kin := time.FixedZone("CAT", 2*60*60)
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "strips time of day",
			in:   time.Date(2021, 3, 15, 13, 37, 42, 999, time.UTC),
			want: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "converts to UTC first",
			in:   time.Date(2021, 3, 15, 1, 0, 0, 0, kin), // 2021-03-14 23:00 UTC
			want: time.Date(2021, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "idempotent",
			in:   time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDate(tt.in); !got.Equal(tt.want) {
				t.Errorf("NormalizeDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr error
	}{
		{name: "valid", in: "2021-03-15", want: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding spaces", in: "  2021-03-15 ", want: time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "empty", in: "", wantErr: errInvalidDate},
		{name: "wrong layout", in: "15/03/2021", wantErr: errInvalidDate},
		{name: "timestamp not accepted", in: "2021-03-15T10:00:00Z", wantErr: errInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if err != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewAttendance_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    NewAttendance
		wantErr bool
	}{
		{name: "valid", data: NewAttendance{StudentID: "sid", Date: "2021-03-15", Status: StatusPresent}},
		{name: "remarks trimmed", data: NewAttendance{StudentID: "sid", Date: "2021-03-15", Status: StatusLate, Remarks: "  bus strike "}},
		{name: "missing student", data: NewAttendance{Date: "2021-03-15", Status: StatusPresent}, wantErr: true},
		{name: "missing date", data: NewAttendance{StudentID: "sid", Status: StatusPresent}, wantErr: true},
		{name: "bad date", data: NewAttendance{StudentID: "sid", Date: "yesterday", Status: StatusPresent}, wantErr: true},
		{name: "bad status", data: NewAttendance{StudentID: "sid", Date: "2021-03-15", Status: "herepresent"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.data.date.IsZero() {
				t.Error("Validate() did not parse the date")
			}
		})
	}
}
