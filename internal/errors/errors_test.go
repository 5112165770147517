package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "runtime error",
			code:    "R001",
			wantMsg: "Target is not a compound value",
			wantCat: CategoryRuntime,
		},
		{
			name:    "config error",
			code:    "R020",
			wantMsg: "Invalid configuration value",
			wantCat: CategoryConfig,
		},
		{
			name:    "scenario error",
			code:    "R041",
			wantMsg: "Scenario step failed",
			wantCat: CategoryScenario,
		},
		{
			name:    "unknown error code",
			code:    "R999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestIsMatchesCode(t *testing.T) {
	sentinel := New("R004")

	err := New("R004").WithDetailf("field %q", "Name")
	if !stderrors.Is(err, sentinel) {
		t.Error("errors with the same code should match")
	}

	wrapped := fmt.Errorf("set: %w", err)
	if !stderrors.Is(wrapped, sentinel) {
		t.Error("wrapped error should still match its code")
	}

	if stderrors.Is(New("R005"), sentinel) {
		t.Error("different codes should not match")
	}
	if stderrors.Is(Newf(CategoryRuntime, "no code"), Newf(CategoryRuntime, "no code")) {
		t.Error("uncoded errors should not match each other")
	}
}

func TestErrorString(t *testing.T) {
	err := New("R004").WithDetail(`field "Nope"`)
	if got, want := err.Error(), `R004: Unknown key: field "Nope"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := Newf(CategoryCLI, "bad flag %s", "--x")
	if plain.Error() != "bad flag --x" {
		t.Errorf("Error() = %q", plain.Error())
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "R041") != nil {
		t.Error("nil error should stay nil")
	}

	base := stderrors.New("boom")
	re := FromError(base, "R041")
	if re.Code != "R041" || !stderrors.Is(re, base) {
		t.Errorf("FromError should wrap with code, got %+v", re)
	}

	same := New("R040")
	if FromError(same, "R041") != same {
		t.Error("FromError should return existing ReactorError unchanged")
	}
}

func TestFormatWithLocation(t *testing.T) {
	DisableColors()
	defer EnableColors()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	content := "name: demo\nsteps:\n  - set: {path: a}\n  - read: a\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("R040").
		WithLocation(path, 3, 5).
		WithDetail("set step requires a value")

	out := err.Format()
	for _, want := range []string{
		"ERROR R040: Invalid scenario",
		path + ":3:5",
		"→    3 │   - set: {path: a}",
		"set step requires a value",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	out := New("R001").FormatJSON()
	if !strings.Contains(out, `"code":"R001"`) || !strings.Contains(out, `"category":"runtime"`) {
		t.Errorf("FormatJSON() = %s", out)
	}
}

func TestGetAllCodesSorted(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}
	if _, ok := GetTemplate("R003"); !ok {
		t.Error("R003 should be registered")
	}
}
