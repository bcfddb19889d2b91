package cmd

import (
	"testing"
	"time"
)

func TestParseEventFile(t *testing.T) {
	data := []byte(`
id: evt-su-2026
title: Student Union 2026
opens_at: 2026-03-02T09:00:00Z
closes_at: 2026-03-02T17:00:00Z
fence:
  lat: 7.8525
  lng: 4.2811
  radius_meters: 5000
eligibility:
  unit: Engineering
  subunit_ids: [sub-cs, sub-ee]
  tiers: ["300", "400"]
contestants:
  - id: pres-a
    position: President
    name: Ada
  - id: pres-b
    position: President
    name: Bola
`)

	input, err := parseEventFile(data)
	if err != nil {
		t.Fatalf("parseEventFile() error = %v", err)
	}
	if input.EventID != "evt-su-2026" || input.Title != "Student Union 2026" {
		t.Fatalf("parseEventFile() id/title = %q/%q", input.EventID, input.Title)
	}
	if !input.OpensAt.Equal(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("opens_at = %v", input.OpensAt)
	}
	if input.Fence.RadiusMeters != 5000 || input.Fence.OffSiteAllowed {
		t.Fatalf("fence = %+v", input.Fence)
	}
	if len(input.Eligibility.SubunitIDs) != 2 || len(input.Eligibility.Tiers) != 2 {
		t.Fatalf("eligibility = %+v", input.Eligibility)
	}
	if len(input.Contestants) != 2 || input.Contestants[1].Name != "Bola" {
		t.Fatalf("contestants = %+v", input.Contestants)
	}
}

func TestParseEventFileRejectsBadYAML(t *testing.T) {
	if _, err := parseEventFile([]byte("title: [unclosed")); err == nil {
		t.Fatalf("parseEventFile() expected error")
	}
}
