package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/google/uuid"

	"github.com/robotalks/pms.go/pkg/station"
	"github.com/robotalks/pms.go/pkg/station/aqi"
)

// Encoding selects the payload format.
type Encoding string

// Supported encodings. EncodingFlat is a bare JSON object of the smoothed
// values, the payload older station firmware published.
const (
	EncodingJSON  Encoding = "json"
	EncodingProto Encoding = "proto"
	EncodingFlat  Encoding = "flat"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case EncodingJSON, EncodingProto, EncodingFlat:
		return e, nil
	case "":
		return EncodingJSON, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", s)
}

// Message is one published reading.
type Message struct {
	ID      string         `json:"id"`
	Station string         `json:"station"`
	Time    time.Time      `json:"time"`
	Values  map[string]int `json:"values"`
	AQI     aqi.Info       `json:"aqi"`
}

// NewMessage creates a message with a fresh ID from a snapshot.
func NewMessage(stationID string, snap *station.Snapshot) *Message {
	return &Message{
		ID:      uuid.New().String(),
		Station: stationID,
		Time:    snap.Time,
		Values:  snap.Smoothed,
		AQI:     snap.AQI,
	}
}

// Encode serializes the message.
func (m *Message) Encode(enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON, "":
		return json.Marshal(m)
	case EncodingProto:
		return proto.Marshal(m.toStruct())
	case EncodingFlat:
		return json.Marshal(m.Values)
	}
	return nil, fmt.Errorf("unsupported encoding %q", enc)
}

// DecodeMessage parses a payload produced by Encode. A flat payload only
// fills Values.
func DecodeMessage(enc Encoding, payload []byte) (*Message, error) {
	var m Message
	switch enc {
	case EncodingJSON, "":
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return &m, nil
	case EncodingProto:
		var s structpb.Struct
		if err := proto.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		if err := m.fromStruct(&s); err != nil {
			return nil, err
		}
		return &m, nil
	case EncodingFlat:
		if err := json.Unmarshal(payload, &m.Values); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", enc)
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

func (m *Message) toStruct() *structpb.Struct {
	values := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m.Values))}
	for key, value := range m.Values {
		values.Fields[key] = numberValue(float64(value))
	}
	rgb := &structpb.ListValue{}
	for _, c := range m.AQI.RGB {
		rgb.Values = append(rgb.Values, numberValue(float64(c)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":      stringValue(m.ID),
		"station": stringValue(m.Station),
		"time":    stringValue(m.Time.UTC().Format(time.RFC3339Nano)),
		"values":  {Kind: &structpb.Value_StructValue{StructValue: values}},
		"aqi": {Kind: &structpb.Value_StructValue{StructValue: &structpb.Struct{
			Fields: map[string]*structpb.Value{
				"aqi":      numberValue(float64(m.AQI.AQI)),
				"category": stringValue(m.AQI.Category),
				"color":    stringValue(m.AQI.Color),
				"rgb":      {Kind: &structpb.Value_ListValue{ListValue: rgb}},
			},
		}}},
	}}
}

func (m *Message) fromStruct(s *structpb.Struct) error {
	m.ID = s.Fields["id"].GetStringValue()
	m.Station = s.Fields["station"].GetStringValue()
	if ts := s.Fields["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("invalid time: %w", err)
		}
		m.Time = t
	}
	if values := s.Fields["values"].GetStructValue(); values != nil {
		m.Values = make(map[string]int, len(values.Fields))
		for key, value := range values.Fields {
			m.Values[key] = int(value.GetNumberValue())
		}
	}
	if info := s.Fields["aqi"].GetStructValue(); info != nil {
		m.AQI.AQI = int(info.Fields["aqi"].GetNumberValue())
		m.AQI.Category = info.Fields["category"].GetStringValue()
		m.AQI.Color = info.Fields["color"].GetStringValue()
		for n, c := range info.Fields["rgb"].GetListValue().GetValues() {
			if n < len(m.AQI.RGB) {
				m.AQI.RGB[n] = uint8(c.GetNumberValue())
			}
		}
	}
	return nil
}
