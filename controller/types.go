// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Namespace qualifies every payload element of the controller's web
// services, and prefixes every SOAPAction.
const Namespace = "http://www.homewire.io/ws/v1"

// Services exposed under <endpoint>/ws/.
const (
	ServiceSession = "SessionService"
	ServiceIO      = "IOService"
)

// ValueType tags the variant held by a Value.
type ValueType int

const (
	TypeUnknown ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeTimestamp
	TypeEnum
)

var valueTypeNames = map[ValueType]string{
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeTimestamp: "timestamp",
	TypeEnum:      "enum",
}

func (t ValueType) String() string {
	if name, ok := valueTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the type by name.
func (t ValueType) MarshalText() ([]byte, error) {
	if _, ok := valueTypeNames[t]; !ok {
		return nil, fmt.Errorf("controller: unknown value type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText parses a type name produced by MarshalText.
func (t *ValueType) UnmarshalText(text []byte) error {
	parsed, err := ParseValueType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseValueType returns the ValueType with the given name.
func ParseValueType(name string) (ValueType, error) {
	for valueType, candidate := range valueTypeNames {
		if candidate == name {
			return valueType, nil
		}
	}
	return TypeUnknown, fmt.Errorf("controller: unknown value type %q", name)
}

// Value is a resource value: one of bool, int, float, timestamp, or an
// enum member name. Text holds the value in its xsd lexical form, which
// keeps Value comparable and trivially serializable. Build values with
// the constructors; the accessors report ok=false on a type mismatch.
type Value struct {
	Type ValueType `json:"type"`
	Text string    `json:"text"`
}

func BoolValue(value bool) Value {
	return Value{Type: TypeBool, Text: strconv.FormatBool(value)}
}

func IntValue(value int64) Value {
	return Value{Type: TypeInt, Text: strconv.FormatInt(value, 10)}
}

func FloatValue(value float64) Value {
	return Value{Type: TypeFloat, Text: strconv.FormatFloat(value, 'g', -1, 64)}
}

func TimestampValue(value time.Time) Value {
	return Value{Type: TypeTimestamp, Text: value.UTC().Format(time.RFC3339Nano)}
}

func EnumValue(member string) Value {
	return Value{Type: TypeEnum, Text: member}
}

// ParseValue builds a Value of the given type from user-supplied text,
// validating it.
func ParseValue(valueType ValueType, text string) (Value, error) {
	var err error
	switch valueType {
	case TypeBool:
		var parsed bool
		if parsed, err = strconv.ParseBool(text); err == nil {
			return BoolValue(parsed), nil
		}
	case TypeInt:
		var parsed int64
		if parsed, err = strconv.ParseInt(text, 10, 64); err == nil {
			return IntValue(parsed), nil
		}
	case TypeFloat:
		var parsed float64
		if parsed, err = strconv.ParseFloat(text, 64); err == nil {
			return FloatValue(parsed), nil
		}
	case TypeTimestamp:
		var parsed time.Time
		if parsed, err = time.Parse(time.RFC3339Nano, text); err == nil {
			return TimestampValue(parsed), nil
		}
	case TypeEnum:
		if text != "" {
			return EnumValue(text), nil
		}
		err = fmt.Errorf("empty enum member")
	default:
		err = fmt.Errorf("unknown value type")
	}
	return Value{}, &ValidationError{Field: "value", Reason: fmt.Sprintf("%q as %s: %v", text, valueType, err)}
}

func (v Value) Bool() (bool, bool) {
	if v.Type != TypeBool {
		return false, false
	}
	parsed, err := strconv.ParseBool(v.Text)
	return parsed, err == nil
}

func (v Value) Int() (int64, bool) {
	if v.Type != TypeInt {
		return 0, false
	}
	parsed, err := strconv.ParseInt(v.Text, 10, 64)
	return parsed, err == nil
}

func (v Value) Float() (float64, bool) {
	if v.Type != TypeFloat {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(v.Text, 64)
	return parsed, err == nil
}

func (v Value) Timestamp() (time.Time, bool) {
	if v.Type != TypeTimestamp {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339Nano, v.Text)
	return parsed, err == nil
}

func (v Value) Enum() (string, bool) {
	return v.Text, v.Type == TypeEnum
}

func (v Value) String() string { return v.Text }

// ChangeEvent reports the value of one resource. Configuration marks a
// change to the resource's configured value (for example a setpoint)
// rather than its runtime value.
type ChangeEvent struct {
	ResourceID    int       `json:"resource_id"`
	Type          ValueType `json:"type"`
	Value         Value     `json:"value"`
	Configuration bool      `json:"configuration,omitempty"`
}

// StateChange is the wire form of one resource value. The controller
// announces the concrete kind with xsi:type.
type StateChange interface {
	event() ChangeEvent
}

type BoolChange struct {
	ID            int  `xml:"id"`
	Value         bool `xml:"value"`
	Configuration bool `xml:"configuration,omitempty"`
}

type IntChange struct {
	ID            int   `xml:"id"`
	Value         int64 `xml:"value"`
	Configuration bool  `xml:"configuration,omitempty"`
}

type FloatChange struct {
	ID            int     `xml:"id"`
	Value         float64 `xml:"value"`
	Configuration bool    `xml:"configuration,omitempty"`
}

type TimestampChange struct {
	ID            int       `xml:"id"`
	Value         time.Time `xml:"value"`
	Configuration bool      `xml:"configuration,omitempty"`
}

type EnumChange struct {
	ID            int    `xml:"id"`
	Value         string `xml:"value"`
	Configuration bool   `xml:"configuration,omitempty"`
}

func (c BoolChange) event() ChangeEvent {
	return ChangeEvent{ResourceID: c.ID, Type: TypeBool, Value: BoolValue(c.Value), Configuration: c.Configuration}
}

func (c IntChange) event() ChangeEvent {
	return ChangeEvent{ResourceID: c.ID, Type: TypeInt, Value: IntValue(c.Value), Configuration: c.Configuration}
}

func (c FloatChange) event() ChangeEvent {
	return ChangeEvent{ResourceID: c.ID, Type: TypeFloat, Value: FloatValue(c.Value), Configuration: c.Configuration}
}

func (c TimestampChange) event() ChangeEvent {
	return ChangeEvent{ResourceID: c.ID, Type: TypeTimestamp, Value: TimestampValue(c.Value), Configuration: c.Configuration}
}

func (c EnumChange) event() ChangeEvent {
	return ChangeEvent{ResourceID: c.ID, Type: TypeEnum, Value: EnumValue(c.Value), Configuration: c.Configuration}
}

// changeSubtypes are the StateChange kinds the codec may select.
var changeSubtypes = []reflect.Type{
	reflect.TypeOf(BoolChange{}),
	reflect.TypeOf(IntChange{}),
	reflect.TypeOf(FloatChange{}),
	reflect.TypeOf(TimestampChange{}),
	reflect.TypeOf(EnumChange{}),
}

// stateChangeFor converts a resource value to its wire form.
func stateChangeFor(resourceID int, value Value) (StateChange, error) {
	invalid := func() error {
		return &ValidationError{Field: "value", Reason: fmt.Sprintf("%q is not a valid %s", value.Text, value.Type)}
	}
	switch value.Type {
	case TypeBool:
		parsed, ok := value.Bool()
		if !ok {
			return nil, invalid()
		}
		return BoolChange{ID: resourceID, Value: parsed}, nil
	case TypeInt:
		parsed, ok := value.Int()
		if !ok {
			return nil, invalid()
		}
		return IntChange{ID: resourceID, Value: parsed}, nil
	case TypeFloat:
		parsed, ok := value.Float()
		if !ok {
			return nil, invalid()
		}
		return FloatChange{ID: resourceID, Value: parsed}, nil
	case TypeTimestamp:
		parsed, ok := value.Timestamp()
		if !ok {
			return nil, invalid()
		}
		return TimestampChange{ID: resourceID, Value: parsed}, nil
	case TypeEnum:
		if value.Text == "" {
			return nil, invalid()
		}
		return EnumChange{ID: resourceID, Value: value.Text}, nil
	}
	return nil, &ValidationError{Field: "value", Reason: "value has no type"}
}

func eventsFrom(changes []StateChange) []ChangeEvent {
	events := make([]ChangeEvent, 0, len(changes))
	for _, change := range changes {
		events = append(events, change.event())
	}
	return events
}

// Request and response payloads. The XMLName tags fix each payload's
// root element and namespace.

type AuthenticateRequest struct {
	XMLName     xml.Name `xml:"http://www.homewire.io/ws/v1 Authenticate"`
	UserName    string   `xml:"userName"`
	Password    string   `xml:"password"`
	Application string   `xml:"application"`
}

type AuthenticateResponse struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 AuthenticateResponse"`
	Result  bool     `xml:"return"`
}

type LogoutRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 Logout"`
}

type LogoutResponse struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 LogoutResponse"`
}

type GetServerInfoRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 GetServerInfo"`
}

// ServerInfo describes the controller.
type ServerInfo struct {
	XMLName      xml.Name  `xml:"http://www.homewire.io/ws/v1 GetServerInfoResponse"`
	Name         string    `xml:"name"`
	Version      string    `xml:"version"`
	SerialNumber string    `xml:"serialNumber,omitempty"`
	Time         time.Time `xml:"time,omitempty"`
}

type GetValuesRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 GetValues"`
	IDs     []int    `xml:"ids"`
}

type GetValuesResponse struct {
	XMLName xml.Name      `xml:"http://www.homewire.io/ws/v1 GetValuesResponse"`
	Values  []StateChange `xml:"return"`
}

type SetValueRequest struct {
	XMLName xml.Name    `xml:"http://www.homewire.io/ws/v1 SetValue"`
	Change  StateChange `xml:"change"`
}

type SetValueResponse struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 SetValueResponse"`
}

type EnableStateChangeEventsRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 EnableStateChangeEvents"`
	IDs     []int    `xml:"ids"`
}

type EnableStateChangeEventsResponse struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 EnableStateChangeEventsResponse"`
	Result  bool     `xml:"return"`
}

type WaitStateChangeEventsRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 WaitStateChangeEvents"`
	// Timeout is in whole seconds.
	Timeout int `xml:"timeout"`
}

type WaitStateChangeEventsResponse struct {
	XMLName xml.Name      `xml:"http://www.homewire.io/ws/v1 WaitStateChangeEventsResponse"`
	Changes []StateChange `xml:"return"`
}

type DisableStateChangeEventsRequest struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 DisableStateChangeEvents"`
	IDs     []int    `xml:"ids"`
}

type DisableStateChangeEventsResponse struct {
	XMLName xml.Name `xml:"http://www.homewire.io/ws/v1 DisableStateChangeEventsResponse"`
	Result  bool     `xml:"return"`
}
