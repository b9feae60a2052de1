package vcs

import (
	"errors"
	"strings"
	"testing"
)

func TestNewBranchNameValid(t *testing.T) {
	cases := []string{
		"feat/githooks-installation-20260101-120000",
		"main",
		"a",
		"release/1.2.3",
	}
	for _, c := range cases {
		if _, err := NewBranchName(c); err != nil {
			t.Errorf("NewBranchName(%q): unexpected error: %v", c, err)
		}
	}
}

func TestNewBranchNameInvalid(t *testing.T) {
	cases := []string{
		"",
		"/leading-slash",
		"trailing-slash/",
		"-leading-dash",
		"trailing-dash-",
		".leading-dot",
		"trailing-dot.",
		"has a space",
		"has\ttab",
		"has$dollar",
		strings.Repeat("a", 256),
	}
	for _, c := range cases {
		if _, err := NewBranchName(c); !errors.Is(err, ErrValidation) {
			t.Errorf("NewBranchName(%q): expected ErrValidation, got %v", c, err)
		}
	}
}
