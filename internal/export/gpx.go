package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"explorafit-server/internal/domain"
)

type gpxDoc struct {
	XMLName  xml.Name    `xml:"gpx"`
	Version  string      `xml:"version,attr"`
	Creator  string      `xml:"creator,attr"`
	Xmlns    string      `xml:"xmlns,attr"`
	Metadata gpxMetadata `xml:"metadata"`
	Track    gpxTrack    `xml:"trk"`
}

type gpxMetadata struct {
	Name string `xml:"name"`
	Time string `xml:"time"`
}

type gpxTrack struct {
	Name     string       `xml:"name"`
	Desc     string       `xml:"desc,omitempty"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lng float64 `xml:"lon,attr"`
}

// WriteGPX renders a route polyline as a GPX 1.1 track document.
func WriteGPX(w io.Writer, route *domain.Route) error {
	points := make([]gpxPoint, len(route.Polyline))
	for i, p := range route.Polyline {
		points[i] = gpxPoint{Lat: p.Lat, Lng: p.Lng}
	}

	doc := gpxDoc{
		Version: "1.1",
		Creator: "explorafit-server",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Metadata: gpxMetadata{
			Name: route.Name,
			Time: route.CreatedAt.UTC().Format(time.RFC3339),
		},
		Track: gpxTrack{
			Name:     route.Name,
			Desc:     route.Description,
			Segments: []gpxSegment{{Points: points}},
		},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write gpx header: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}
	return enc.Close()
}
