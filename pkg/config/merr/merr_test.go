package merr

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestIsTerminateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"sentinel", TerminateError, true},
		{"new", NewTerminateError("manual terminate"), true},
		{"wrapped", errors.Wrap(NewTerminateError("manual terminate"), "task"), true},
		{"fmt wrapped", fmt.Errorf("task: %w", TerminateError), true},
		{"config", NewConfigError("右足ＩＫ", "invalid"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if actual := IsTerminateError(tt.err); actual != tt.expected {
				t.Errorf("IsTerminateError() = %v, want %v", actual, tt.expected)
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := errors.Wrap(NewConfigError("左腕ＩＫ", "Linkに無効なINDEX"), "arm")
	if !IsConfigError(err) {
		t.Fatalf("IsConfigError() = false")
	}

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("errors.As failed")
	}
	if configErr.BoneName != "左腕ＩＫ" {
		t.Errorf("BoneName = %s", configErr.BoneName)
	}
	if IsTerminateError(err) {
		t.Errorf("config error must not be terminate")
	}
}

func TestIsNameNotFoundError(t *testing.T) {
	if !IsNameNotFoundError(NewNameNotFoundError("センター")) {
		t.Errorf("IsNameNotFoundError() = false")
	}
	if IsNameNotFoundError(NewIndexOutOfRangeError(3)) {
		t.Errorf("IsNameNotFoundError(index) = true")
	}
}
