package document

import "testing"

func TestStatus_Rank(t *testing.T) {
	if !(StatusUploading.Rank() < StatusProcessing.Rank()) {
		t.Error("uploading must rank below processing")
	}
	if !(StatusProcessing.Rank() < StatusComplete.Rank()) {
		t.Error("processing must rank below complete")
	}
	if Status("bogus").Rank() != 0 {
		t.Error("unknown status must rank as uploading")
	}
}

func TestDocument_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"appends extension", Document{Name: "invoice", FileExtension: "pdf"}, "invoice.pdf"},
		{"dotted extension", Document{Name: "invoice", FileExtension: ".pdf"}, "invoice.pdf"},
		{"already suffixed", Document{Name: "scan.PDF", FileExtension: "pdf"}, "scan.PDF"},
		{"no extension", Document{Name: "notes"}, "notes"},
		{"no name", Document{FileExtension: "pdf"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.doc.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDocument_Flags(t *testing.T) {
	d := Document{ID: "local-1"}
	if d.HasServerID() {
		t.Error("pending document must not have a server id")
	}
	d.ServerID = "42"
	d.Status = StatusComplete
	if !d.HasServerID() || !d.IsComplete() {
		t.Errorf("flags = %v/%v", d.HasServerID(), d.IsComplete())
	}
}
