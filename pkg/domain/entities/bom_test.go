package entities

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestBOMLine_Validation(t *testing.T) {
	validBOM, err := NewBOMLine("PARENT", "CHILD", "Child", decimal.NewFromInt(2), Buy, "", 1)
	if err != nil {
		t.Fatalf("Expected valid BOM creation to succeed: %v", err)
	}
	if !validBOM.UsagePerParent.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected usage per parent 2, got %s", validBOM.UsagePerParent)
	}

	testCases := []struct {
		name        string
		parentCode  MaterialCode
		childCode   MaterialCode
		usage       decimal.Decimal
		sourceType  SourceType
		process     string
		level       int
		expectError string
	}{
		{"empty parent", "", "CHILD", decimal.NewFromInt(1), Buy, "", 1, "parent material code cannot be empty"},
		{"empty child", "PARENT", "", decimal.NewFromInt(1), Buy, "", 1, "child material code cannot be empty"},
		{"parent equals child", "SAME", "SAME", decimal.NewFromInt(1), Buy, "", 1, "parent and child material codes cannot be the same: SAME"},
		{"negative usage", "PARENT", "CHILD", decimal.NewFromInt(-1), Buy, "", 1, "usage per parent cannot be negative, got -1"},
		{"negative level", "PARENT", "CHILD", decimal.NewFromInt(1), Buy, "", -1, "level cannot be negative, got -1"},
		{"make without process", "PARENT", "CHILD", decimal.NewFromInt(1), Make, "", 1, "make component CHILD requires an output process"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(tc.parentCode, tc.childCode, "", tc.usage, tc.sourceType, tc.process, tc.level)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOMLine_ZeroUsageAllowed(t *testing.T) {
	line, err := NewBOMLine("PARENT", "PHANTOM", "", decimal.Zero, Outsource, "", 2)
	if err != nil {
		t.Fatalf("Expected zero usage to be accepted: %v", err)
	}
	if !line.UsagePerParent.IsZero() {
		t.Errorf("Expected zero usage, got %s", line.UsagePerParent)
	}
}

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		in      string
		want    SourceType
		wantErr bool
	}{
		{"make", Make, false},
		{"BUY", Buy, false},
		{" Outsource ", Outsource, false},
		{"transfer", Make, true},
	}

	for _, tt := range tests {
		got, err := ParseSourceType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSourceType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSourceType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
