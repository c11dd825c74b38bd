package geoserver

import (
	"encoding/xml"
	"fmt"

	"github.com/urban-indicators/internal/domain"
)

// New Zealand extent advertised for every published layer
var nzBoundingBox = boundingBox{MinX: 170, MaxX: 176, MinY: -46, MaxY: -37, CRS: "EPSG:4326"}

const virtualTableKey = "JDBC_VIRTUAL_TABLE"

type boundingBox struct {
	MinX float64 `xml:"minx"`
	MaxX float64 `xml:"maxx"`
	MinY float64 `xml:"miny"`
	MaxY float64 `xml:"maxy"`
	CRS  string  `xml:"crs"`
}

type storeRef struct {
	Class string `xml:"class"`
	Name  string `xml:"name"`
}

type featureType struct {
	XMLName           xml.Name    `xml:"featureType"`
	Name              string      `xml:"name"`
	Title             string      `xml:"title"`
	SRS               string      `xml:"srs"`
	NativeBoundingBox boundingBox `xml:"nativeBoundingBox"`
	LatLonBoundingBox boundingBox `xml:"latLonBoundingBox"`
	Store             storeRef    `xml:"store"`
	NumDecimals       int         `xml:"numDecimals"`
	Metadata          *metadata   `xml:"metadata,omitempty"`
}

type metadata struct {
	Entry metadataEntry `xml:"entry"`
}

type metadataEntry struct {
	Key          string       `xml:"key,attr"`
	VirtualTable virtualTable `xml:"virtualTable"`
}

type virtualTable struct {
	Name       string             `xml:"name"`
	SQL        string             `xml:"sql"`
	EscapeSQL  bool               `xml:"escapeSql"`
	Geometry   *virtualGeometry   `xml:"geometry,omitempty"`
	Parameters []virtualParameter `xml:"parameter"`
}

type virtualGeometry struct {
	Name string `xml:"name"`
	Type string `xml:"type"`
	SRID int    `xml:"srid"`
}

type virtualParameter struct {
	Name            string `xml:"name"`
	DefaultValue    string `xml:"defaultValue,omitempty"`
	RegexpValidator string `xml:"regexpValidator,omitempty"`
}

type dataStore struct {
	XMLName    xml.Name             `xml:"dataStore"`
	Name       string               `xml:"name"`
	Connection connectionParameters `xml:"connectionParameters"`
}

type connectionParameters struct {
	Host     string `xml:"host"`
	Port     int    `xml:"port"`
	Database string `xml:"database"`
	User     string `xml:"user"`
	Passwd   string `xml:"passwd"`
	DBType   string `xml:"dbtype"`
}

func newFeatureType(store string, view domain.ViewDefinition) featureType {
	ft := featureType{
		Name:              view.Name,
		Title:             view.Name,
		SRS:               nzBoundingBox.CRS,
		NativeBoundingBox: nzBoundingBox,
		LatLonBoundingBox: nzBoundingBox,
		Store:             storeRef{Class: "dataStore", Name: store},
		NumDecimals:       8,
	}
	if !view.IsVirtual() {
		return ft
	}

	vt := virtualTable{
		Name: view.Name,
		SQL:  view.SQL,
	}
	if view.Geometry != nil {
		vt.Geometry = &virtualGeometry{
			Name: view.Geometry.Name,
			Type: view.Geometry.Type,
			SRID: view.Geometry.SRID,
		}
	}
	for _, p := range view.Parameters {
		vt.Parameters = append(vt.Parameters, virtualParameter{
			Name:            p.Name,
			DefaultValue:    p.DefaultValue,
			RegexpValidator: p.Validator,
		})
	}
	ft.Metadata = &metadata{Entry: metadataEntry{Key: virtualTableKey, VirtualTable: vt}}
	return ft
}

func marshalXML(v interface{}) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return body, nil
}
