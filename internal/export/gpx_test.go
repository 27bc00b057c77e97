package export

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"explorafit-server/internal/domain"
)

func TestWriteGPX(t *testing.T) {
	t.Parallel()

	route := &domain.Route{
		ID:          1,
		Name:        "Canal loop",
		Description: "Flat and fast",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Polyline: []domain.LatLng{
			{Lat: 51.505, Lng: -0.09},
			{Lat: 51.51, Lng: -0.1},
			{Lat: 51.515, Lng: -0.11},
		},
	}

	var buf bytes.Buffer
	if err := WriteGPX(&buf, route); err != nil {
		t.Fatalf("WriteGPX error: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, xml.Header) {
		t.Fatalf("missing xml header:\n%s", out)
	}
	if got := strings.Count(out, "<trkpt"); got != len(route.Polyline) {
		t.Fatalf("trkpt count: got %d want %d", got, len(route.Polyline))
	}
	for _, want := range []string{
		`version="1.1"`,
		`xmlns="http://www.topografix.com/GPX/1/1"`,
		`lat="51.505"`,
		`lon="-0.09"`,
		"<name>Canal loop</name>",
		"<desc>Flat and fast</desc>",
		"<time>2025-06-01T12:00:00Z</time>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	var decoded gpxDoc
	if err := xml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not well-formed xml: %v", err)
	}
}

func TestWriteGPX_EmptyOptionalFields(t *testing.T) {
	t.Parallel()

	route := &domain.Route{
		Name:      "Bare",
		CreatedAt: time.Now(),
		Polyline:  []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}},
	}

	var buf bytes.Buffer
	if err := WriteGPX(&buf, route); err != nil {
		t.Fatalf("WriteGPX error: %v", err)
	}
	if strings.Contains(buf.String(), "<desc>") {
		t.Fatalf("empty description must be omitted:\n%s", buf.String())
	}
}
