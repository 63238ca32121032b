package seed

import (
	"strings"
	"testing"
)

const sample = `
categories:
  - id: pub
    name: Public Apps
    categories:
      - id: seq
        name: Sequencing
  - id: ws
    name: Workspace
    categories:
      - id: fav
        name: Favorite Apps
apps:
  - id: bwa
    name: BWA
    description: Burrows-Wheeler aligner
    favorite: true
    categories: [seq, fav]
    components: [bwa-0.7]
components:
  - id: bwa-0.7
    name: bwa
    version: 0.7.17
    location: /usr/local/bin
`

func TestParse_Sample(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Categories) != 2 {
		t.Fatalf("roots = %d, want 2", len(doc.Categories))
	}
	if doc.Categories[0].Categories[0].Name != "Sequencing" {
		t.Errorf("nested name = %q", doc.Categories[0].Categories[0].Name)
	}
	if len(doc.Apps) != 1 || !doc.Apps[0].Favorite {
		t.Errorf("apps = %+v", doc.Apps)
	}
	if doc.Components[0].Version != "0.7.17" {
		t.Errorf("version = %q", doc.Components[0].Version)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("categories: [{{{")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "missing category id",
			doc:  Document{Categories: []Category{{Name: "A"}}},
			want: "has no id",
		},
		{
			name: "duplicate nested category",
			doc: Document{Categories: []Category{
				{ID: "a", Name: "A", Categories: []Category{{ID: "a", Name: "Again"}}},
			}},
			want: "duplicate category id",
		},
		{
			name: "unknown category reference",
			doc: Document{
				Categories: []Category{{ID: "a", Name: "A"}},
				Apps:       []App{{ID: "x", Name: "X", Categories: []string{"b"}}},
			},
			want: "unknown category",
		},
		{
			name: "unknown component reference",
			doc: Document{
				Categories: []Category{{ID: "a", Name: "A"}},
				Apps:       []App{{ID: "x", Name: "X", Components: []string{"c"}}},
			},
			want: "unknown component",
		},
		{
			name: "duplicate app",
			doc: Document{
				Apps: []App{{ID: "x", Name: "X"}, {ID: "x", Name: "Y"}},
			},
			want: "duplicate app id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestMarshal_ParsesBack(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, out)
	}
	if again.Apps[0].Categories[1] != "fav" {
		t.Errorf("categories = %v", again.Apps[0].Categories)
	}
}
