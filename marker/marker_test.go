package marker

import (
	"testing"
)

func TestFormat(t *testing.T) {
	if got := Format("img-0a1b2c3d4e5f-p0-occ1"); got != "[[img-0a1b2c3d4e5f-p0-occ1]]" {
		t.Errorf("unexpected marker %q", got)
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"img-0a1b2c3d4e5f-p0-occ1", true},
		{"tsnap-ffffffffffff-p12-occ3", true},
		{"snake_case_id", true},
		{"", false},
		{"IMG-0A1B-p0-occ1", false},
		{"img 0a1b", false},
		{"img.0a1b", false},
	}

	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.valid {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}

func TestFindIDs(t *testing.T) {
	content := "[[img-aaaa-p0-occ1]]\nSome translated text.\n[[vpdf-bbbb-p0-occ2]]\nMore text [[not valid!]] here."

	ids := FindIDs(content)
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d: %v", len(ids), ids)
	}
	if ids[0] != "img-aaaa-p0-occ1" || ids[1] != "vpdf-bbbb-p0-occ2" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestFindIDs_Repeats(t *testing.T) {
	content := "[[img-aaaa-p0-occ1]]\n[[img-aaaa-p0-occ1]]\n"

	if ids := FindIDs(content); len(ids) != 2 {
		t.Errorf("repeats must be reported, got %v", ids)
	}
}

func TestFindMalformed(t *testing.T) {
	content := "[[IMG-UPPER]] text [[good-id]] more [[has space]] end [[]]"

	bad := FindMalformed(content)
	if len(bad) != 3 {
		t.Fatalf("expected 3 malformed tokens, got %v", bad)
	}
	for _, b := range bad {
		if b == "good-id" {
			t.Error("well-formed id reported as malformed")
		}
	}
}

func TestContains(t *testing.T) {
	content := "[[img-aaaa-p0-occ1]]\nbody"

	if !Contains(content, "img-aaaa-p0-occ1") {
		t.Error("expected marker to be found")
	}
	if Contains(content, "img-aaaa-p0-occ2") {
		t.Error("different occurrence must not match")
	}
	// A plain mention of the id without brackets is not a marker.
	if Contains("see img-aaaa-p0-occ1 above", "img-aaaa-p0-occ1") {
		t.Error("unbracketed id must not count as a marker")
	}
}
