package graph

import "strings"

// DataMap wraps a raw map[string]any for type-tolerant value extraction.
// All accessors return default values if the key is missing or the value
// cannot be converted to the requested type. Authoring tools produce
// transiently inconsistent documents, so decoding never fails on a single
// bad field.
type DataMap struct {
	data map[string]any
}

// NewDataMap creates a DataMap from the given map.
// If data is nil, an empty DataMap is returned.
func NewDataMap(data map[string]any) DataMap {
	if data == nil {
		data = make(map[string]any)
	}
	return DataMap{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (m DataMap) String(key, defaultVal string) string {
	v, ok := m.data[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not a bool.
func (m DataMap) Bool(key string, defaultVal bool) bool {
	v, ok := m.data[key]
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part; JSON numbers
//     decode as float64)
func (m DataMap) Int(key string, defaultVal int) int {
	v, ok := m.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float value for key, or defaultVal if missing or not numeric.
func (m DataMap) Float(key string, defaultVal float64) float64 {
	v, ok := m.data[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// Strings returns the []string value for key. Elements that are not strings
// are skipped. Returns nil if the key is missing or not a list.
func (m DataMap) Strings(key string) []string {
	v, ok := m.data[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Maps returns the list of nested maps for key. Non-map elements are skipped.
// Returns nil if the key is missing or not a list.
func (m DataMap) Maps(key string) []DataMap {
	v, ok := m.data[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []DataMap
	for _, item := range list {
		if nested, ok := item.(map[string]any); ok {
			out = append(out, NewDataMap(nested))
		}
	}
	return out
}

// Has reports whether key is present, regardless of its type.
func (m DataMap) Has(key string) bool {
	_, ok := m.data[key]
	return ok
}

// nodeDataFromMap builds a typed NodeData from a raw configuration bag.
func nodeDataFromMap(m DataMap) NodeData {
	d := NodeData{
		Text:        m.String("text", ""),
		Command:     m.String("command", ""),
		Description: m.String("description", ""),
		ShowInMenu:  m.Bool("showInMenu", false),

		KeyboardType:    KeyboardType(m.String("keyboardType", string(KeyboardNone))),
		OneTimeKeyboard: m.Bool("oneTimeKeyboard", false),
		ResizeKeyboard:  m.Bool("resizeKeyboard", true),

		CollectUserInput:  m.Bool("collectUserInput", false),
		InputVariable:     m.String("inputVariable", ""),
		InputTargetNodeID: m.String("inputTargetNodeId", ""),
		InputType:         InputKind(m.String("inputType", string(InputText))),
		MinLength:         m.Int("minLength", 0),
		MaxLength:         m.Int("maxLength", 0),
		RetryMessage:      m.String("retryMessage", ""),

		AllowMultipleSelection: m.Bool("allowMultipleSelection", false),
		MultiSelectVariable:    m.String("multiSelectVariable", ""),

		EnableConditionalMessages: m.Bool("enableConditionalMessages", false),

		EnableAutoTransition: m.Bool("enableAutoTransition", false),
		AutoTransitionTo:     m.String("autoTransitionTo", ""),
		AutoTransitionDelay:  m.Float("autoTransitionDelay", 0),

		EnablePhotoInput:      m.Bool("enablePhotoInput", false),
		PhotoInputVariable:    m.String("photoInputVariable", ""),
		EnableVideoInput:      m.Bool("enableVideoInput", false),
		VideoInputVariable:    m.String("videoInputVariable", ""),
		EnableAudioInput:      m.Bool("enableAudioInput", false),
		AudioInputVariable:    m.String("audioInputVariable", ""),
		EnableDocumentInput:   m.Bool("enableDocumentInput", false),
		DocumentInputVariable: m.String("documentInputVariable", ""),

		Synonyms: m.Strings("synonyms"),
	}

	for _, bm := range m.Maps("buttons") {
		d.Buttons = append(d.Buttons, buttonFromMap(bm))
	}
	for _, cm := range m.Maps("conditionalMessages") {
		d.ConditionalMessages = append(d.ConditionalMessages, conditionalFromMap(cm))
	}
	return d
}

// buttonFromMap builds a typed Button from a raw descriptor.
func buttonFromMap(m DataMap) Button {
	return Button{
		ID:                 m.String("id", ""),
		Text:               m.String("text", ""),
		Action:             ButtonAction(m.String("action", string(ActionGoto))),
		Target:             m.String("target", ""),
		SkipDataCollection: m.Bool("skipDataCollection", false),
		RequestContact:     m.Bool("requestContact", false),
		RequestLocation:    m.Bool("requestLocation", false),
	}
}

// conditionalFromMap builds a typed ConditionalMessage from a raw descriptor.
func conditionalFromMap(m DataMap) ConditionalMessage {
	c := ConditionalMessage{
		ID:            m.String("id", ""),
		Priority:      m.Int("priority", 0),
		Variables:     m.Strings("variables"),
		Operator:      LogicOperator(strings.ToLower(m.String("operator", string(LogicAnd)))),
		Text:          m.String("text", ""),
		KeyboardType:  KeyboardType(m.String("keyboardType", string(KeyboardNone))),
		WaitForInput:  m.Bool("waitForInput", false),
		InputVariable: m.String("inputVariable", ""),
		NextNodeID:    m.String("nextNodeId", ""),
	}
	// Single-variable documents use "variable" instead of "variables".
	if len(c.Variables) == 0 {
		if v := m.String("variable", ""); v != "" {
			c.Variables = []string{v}
		}
	}
	if c.Operator != LogicOr {
		c.Operator = LogicAnd
	}
	for _, bm := range m.Maps("buttons") {
		c.Buttons = append(c.Buttons, buttonFromMap(bm))
	}
	return c
}
