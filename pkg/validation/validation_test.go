package validation

import (
	"strconv"
	"strings"
	"testing"
)

func TestForecastRequestValidator_ParseDays(t *testing.T) {
	validator := NewForecastRequestValidator(30)

	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
		errMsg  string
	}{
		{name: "empty defaults to one day", raw: "", want: 1},
		{name: "valid", raw: "7", want: 7},
		{name: "whitespace", raw: " 3 ", want: 3},
		{name: "upper bound", raw: "30", want: 30},
		{name: "zero", raw: "0", wantErr: true, errMsg: "days must be between 1 and 30, got 0"},
		{name: "negative", raw: "-2", wantErr: true},
		{name: "too far", raw: "31", wantErr: true, errMsg: "days must be between 1 and 30, got 31"},
		{name: "not a number", raw: "week", wantErr: true, errMsg: "days must be an integer"},
		{name: "fraction", raw: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ParseDays(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDays() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err != nil && tt.errMsg != "" {
				if err.Error() != tt.errMsg {
					t.Errorf("ParseDays() error message = %v, want %v", err.Error(), tt.errMsg)
				}
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSubmissionRequestValidator_ValidateForm(t *testing.T) {
	validator := NewSubmissionRequestValidator()

	tooMany := map[string]string{}
	for i := 0; i <= MaxFormFields; i++ {
		tooMany["f"+strconv.Itoa(i)] = "1"
	}

	tests := []struct {
		name    string
		form    map[string]string
		wantErr bool
	}{
		{name: "nil form", form: nil},
		{name: "typical form", form: map[string]string{"q1": "0.5", "q1_polarity": "positive", "sleep_start": "23:00", "weight": "not a number"}},
		{name: "empty key", form: map[string]string{"": "1"}, wantErr: true},
		{name: "long key", form: map[string]string{strings.Repeat("k", MaxFieldName+1): "1"}, wantErr: true},
		{name: "long value", form: map[string]string{"q1": strings.Repeat("9", MaxFieldValue+1)}, wantErr: true},
		{name: "control character in key", form: map[string]string{"q1\n": "1"}, wantErr: true},
		{name: "too many fields", form: tooMany, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateForm(tt.form)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateForm() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmissionRequestValidator_ValidateUserID(t *testing.T) {
	validator := NewSubmissionRequestValidator()

	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "uuid", userID: "3f2b6c1e-9a0d-4e55-8c1f-0b7a2d4e6f80"},
		{name: "name", userID: "alice"},
		{name: "empty", userID: "", wantErr: true},
		{name: "too long", userID: strings.Repeat("a", MaxUserIDChars+1), wantErr: true},
		{name: "non ascii", userID: "ユーザー", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateUserID(tt.userID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
