package debdb

import (
	"strings"
	"testing"
)

const samplePackages = `Package: curl
Version: 7.88.1-10
Installed-Size: 434
Homepage: https://curl.se
Depends: libc6 (>= 2.34), libcurl4 (= 7.88.1-10)
Filename: pool/main/c/curl/curl_7.88.1-10_amd64.deb
Size: 227784
Section: web
Description: command line tool for transferring data with URL syntax
 A long description
 that continues here.

Package: libcurl4
Version: 7.88.1-10
Installed-Size: 478
Size: 343636
Description: easy-to-use client-side URL transfer library
`

func TestParsePackages(t *testing.T) {
	pkgs, err := ParsePackages(strings.NewReader(samplePackages))
	if err != nil {
		t.Fatalf("ParsePackages: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(pkgs))
	}

	curl := pkgs[0]
	if curl.Name != "curl" || curl.Version != "7.88.1-10" {
		t.Errorf("unexpected curl record: %+v", curl)
	}
	if curl.InstallSize != 434*1024 {
		t.Errorf("expected InstallSize in bytes, got %d", curl.InstallSize)
	}
	if len(curl.Depends) != 2 || curl.Depends[0] != "libc6" || curl.Depends[1] != "libcurl4" {
		t.Errorf("expected version constraints stripped from Depends, got %+v", curl.Depends)
	}
}

func TestParsePackagesParallel(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		sb.WriteString("Package: pkg")
		sb.WriteString(strconvItoa(i))
		sb.WriteString("\nVersion: 1.0-1\nDescription: test package\n\n")
	}

	pkgs, err := ParsePackages(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParsePackages: %v", err)
	}
	if len(pkgs) != 250 {
		t.Fatalf("expected 250 packages, got %d", len(pkgs))
	}
	seen := map[string]bool{}
	for _, p := range pkgs {
		seen[p.Name] = true
	}
	if len(seen) != 250 {
		t.Fatalf("expected 250 distinct names, got %d", len(seen))
	}
}

func strconvItoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

const sampleStatus = `Package: curl
Status: install ok installed
Version: 7.88.1-10
Description: command line tool

Package: libfoo
Status: deinstall ok config-files
Version: 1.0-1
Description: removed package

Package: bash
Status: install ok installed
Version: 5.2-3
Description: GNU shell
`

func TestReadStatus(t *testing.T) {
	pkgs, err := ReadStatus(strings.NewReader(sampleStatus))
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("expected 2 installed packages, got %d: %+v", len(pkgs), pkgs)
	}
	names := map[string]bool{}
	for _, p := range pkgs {
		names[p.Name] = true
	}
	if !names["curl"] || !names["bash"] {
		t.Errorf("expected curl and bash installed, got %+v", pkgs)
	}
	if names["libfoo"] {
		t.Errorf("libfoo should be excluded (not 'install ok installed')")
	}
}

const sampleExtStates = `Package: libfoo
Auto-Installed: 1

Package: curl
Auto-Installed: 0
`

func TestReadExtendedStatesAndApply(t *testing.T) {
	auto, err := ReadExtendedStates(strings.NewReader(sampleExtStates))
	if err != nil {
		t.Fatalf("ReadExtendedStates: %v", err)
	}
	if !auto["libfoo"] {
		t.Errorf("expected libfoo marked auto-installed")
	}
	if auto["curl"] {
		t.Errorf("curl should not be auto-installed")
	}

	pkgs, err := ReadStatus(strings.NewReader(sampleStatus))
	if err != nil {
		t.Fatalf("ReadStatus: %v", err)
	}
	ApplyAutoInstalled(pkgs, auto)

	for _, p := range pkgs {
		switch p.Name {
		case "curl":
			if p.Reason != "explicit" {
				t.Errorf("curl should be explicit, got %v", p.Reason)
			}
		case "bash":
			if p.Reason != "explicit" {
				t.Errorf("bash should default to explicit when absent from extended_states, got %v", p.Reason)
			}
		}
	}
}

func TestParsePackageList(t *testing.T) {
	got := parsePackageList("libc6 (>= 2.34), libcurl4 (= 7.88.1-10) | libcurl3")
	want := []string{"libc6", "libcurl4"}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}
