package liquid

import (
	"encoding/json"
	"testing"
)

func TestConditionsModeText(t *testing.T) {
	tests := []struct {
		in      string
		want    ConditionsMode
		wantErr bool
	}{
		{in: "true", want: ConditionsOn},
		{in: "false", want: ConditionsOff},
		{in: "strict", want: ConditionsStrict},
		{in: " Strict ", want: ConditionsStrict},
		{in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var m ConditionsMode
			err := m.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalText: %v", err)
			}
			if m != tt.want {
				t.Fatalf("got %v, want %v", m, tt.want)
			}
		})
	}
}

func TestSettingsJSON(t *testing.T) {
	var s Settings
	if err := json.Unmarshal([]byte(`{"conditions":"strict","cycles":true,"keepNotVar":true}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Conditions != ConditionsStrict || !s.Cycles || !s.KeepNotVar {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	s := DefaultSettings()
	s.MaxDepth = -1
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for negative depth")
	}
	s = DefaultSettings()
	s.Conditions = ConditionsMode(7)
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
