package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCents int64
		wantErr   bool
	}{
		{name: "plain decimal", input: "12.34", wantCents: 1234},
		{name: "comma separator", input: "12,34", wantCents: 1234},
		{name: "no fraction", input: "50", wantCents: 5000},
		{name: "single fractional digit", input: "50.5", wantCents: 5050},
		{name: "third digit rounds down", input: "12.344", wantCents: 1234},
		{name: "third digit rounds up", input: "12.345", wantCents: 1235},
		{name: "leading dot", input: ".75", wantCents: 75},
		{name: "whitespace trimmed", input: "  9.99 ", wantCents: 999},
		{name: "empty", input: "", wantErr: true},
		{name: "negative rejected", input: "-5.00", wantErr: true},
		{name: "explicit plus rejected", input: "+5.00", wantErr: true},
		{name: "letters rejected", input: "12a.00", wantErr: true},
		{name: "two dots rejected", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.wantCents {
				t.Errorf("ParseMoney(%q) = %d cents, want %d", tt.input, got.Cents, tt.wantCents)
			}
		})
	}
}

func TestParseSignedMoney(t *testing.T) {
	tests := []struct {
		input     string
		wantCents int64
		wantErr   bool
	}{
		{input: "-50.00", wantCents: -5000},
		{input: "+50.00", wantCents: 5000},
		{input: "0", wantCents: 0},
		{input: "1000.00", wantCents: 100000},
		{input: "--1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSignedMoney(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSignedMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.wantCents {
				t.Errorf("ParseSignedMoney(%q) = %d cents, want %d", tt.input, got.Cents, tt.wantCents)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 1234, want: "12.34"},
		{cents: 100000, want: "1000.00"},
		{cents: -5, want: "-0.05"},
		{cents: 0, want: "0.00"},
		{cents: 7, want: "0.07"},
	}

	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	tests := []struct {
		cents   int64
		wantErr bool
	}{
		{cents: 5000},
		{cents: 1},
		{cents: 0}, // a 0.00 amount is a legitimate record
		{cents: -1, wantErr: true},
		{cents: -5000, wantErr: true},
	}

	for _, tt := range tests {
		err := (Money{Cents: tt.cents}).Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Money{%d}.Validate() error = %v, wantErr %v", tt.cents, err, tt.wantErr)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	in := Money{Cents: -4250}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"-42.50"` {
		t.Errorf("marshal = %s, want \"-42.50\"", data)
	}

	var out Money
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}

	// Bare JSON numbers are accepted too
	var fromNumber Money
	if err := json.Unmarshal([]byte(`80.00`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if fromNumber.Cents != 8000 {
		t.Errorf("unmarshal number = %d cents, want 8000", fromNumber.Cents)
	}
}
