package plan

import "testing"

func TestFormatRoundTripsParsedPlan(t *testing.T) {
	p, err := Parse([]byte(helloPlan), "/holds/hello")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	out, err := Format(p)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}

	reparsed, err := Parse(out, "/holds/hello")
	if err != nil {
		t.Fatalf("Parse(Format(p)) error: %v", err)
	}

	if reparsed.Name != p.Name || reparsed.Version.String() != p.Version.String() || reparsed.Release != p.Release {
		t.Fatalf("round trip lost plan identity: got %+v, want %+v", reparsed, p)
	}
	if len(reparsed.Sources) != 1 || reparsed.Sources[0].SHA256 != "abc123" {
		t.Fatalf("round trip lost sources: %+v", reparsed.Sources)
	}
	compile, ok := reparsed.Stages["compile"]
	if !ok || compile.Level != LevelRelaxed || compile.Script != p.Stages["compile"].Script {
		t.Fatalf("round trip lost compile stage: %+v", compile)
	}
}

func TestFormatUpdatesSourceChecksum(t *testing.T) {
	p, err := Parse([]byte(helloPlan), "/holds/hello")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	p.Sources[0].SHA256 = "def456"

	out, err := Format(p)
	if err != nil {
		t.Fatalf("Format() error: %v", err)
	}
	reparsed, err := Parse(out, "/holds/hello")
	if err != nil {
		t.Fatalf("Parse(Format(p)) error: %v", err)
	}
	if reparsed.Sources[0].SHA256 != "def456" {
		t.Fatalf("expected updated checksum to survive format/reparse, got %q", reparsed.Sources[0].SHA256)
	}
}
