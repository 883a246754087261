package main

import "testing"

func TestSanitizeCommand(t *testing.T) {
	cases := map[string]string{
		"scan":         "scan",
		"rm -rf /":     "rm_-rf__",
		"a;b`c":        "a_b_c",
		"already-ok_1": "already-ok_1",
	}
	for in, want := range cases {
		if got := sanitizeCommand(in); got != want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("CATALOGTOOL_TEST_VAR", "")
	if got := envOr("CATALOGTOOL_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("envOr with unset var = %q, want fallback", got)
	}

	t.Setenv("CATALOGTOOL_TEST_VAR", "set")
	if got := envOr("CATALOGTOOL_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("envOr with set var = %q, want set", got)
	}
}

func TestHasFlag(t *testing.T) {
	if !hasFlag([]string{"--recursive", "--yes"}, "--yes") {
		t.Error("expected --yes to be found")
	}
	if hasFlag([]string{"--recursive"}, "--yes") {
		t.Error("expected --yes to be absent")
	}
}

func TestPrintUsage_NoPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()
	printUsage()
}

func TestConfirm_NonInteractiveDeclines(t *testing.T) {
	// go test's stdin is not a controlling terminal, so confirm must
	// decline rather than block reading a response.
	if confirm("proceed?") {
		t.Error("expected confirm to decline without a terminal")
	}
}
