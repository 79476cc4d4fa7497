package hometree

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind describes how a device value is graduated.
type ValueKind int

const (
	// ValueNone devices are plain ON/OFF switches.
	ValueNone ValueKind = iota
	// ValuePercentage devices are dimmers: OFF or 0%..100%.
	ValuePercentage
	// ValueTemperature devices are thermostats: OFF or 16°C..30°C.
	ValueTemperature
)

// Value bounds and steps for graduated kinds.
const (
	PercentMin   = 0
	PercentMax   = 100
	PercentStep  = 10
	PercentMinOn = 10

	TemperatureMin   = 16
	TemperatureMax   = 30
	TemperatureStep  = 1
	TemperatureMinOn = 18
)

func (k ValueKind) String() string {
	switch k {
	case ValuePercentage:
		return "percentage"
	case ValueTemperature:
		return "temperature"
	default:
		return "none"
	}
}

// Graduated reports whether values of this kind carry a level.
func (k ValueKind) Graduated() bool {
	return k == ValuePercentage || k == ValueTemperature
}

// ParseValueKind maps a layout type name to a ValueKind.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "switch":
		return ValueNone, nil
	case "percentage", "percent", "dimmer":
		return ValuePercentage, nil
	case "temperature", "thermostat":
		return ValueTemperature, nil
	default:
		return ValueNone, fmt.Errorf("unknown value type %q", s)
	}
}

// Value is the state of a device: off, or on at a level.
// Level is only meaningful for graduated kinds.
type Value struct {
	On    bool
	Level int
}

// Off is the zero Value.
var Off = Value{}

// On returns the "ON" value of a plain switch.
func On() Value { return Value{On: true} }

// Level returns an on value at level n.
func Level(n int) Value { return Value{On: true, Level: n} }

// Direction is the sign of an adjustment.
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "up"
}

// ParseDirection accepts "up"/"down" (and +/-).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "+", "inc":
		return Up, nil
	case "down", "-", "dec":
		return Down, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Format renders v the way the dashboard shows it: "OFF", "ON", "50%", "24°C".
func Format(kind ValueKind, v Value) string {
	if !v.On {
		return "OFF"
	}
	switch kind {
	case ValuePercentage:
		return strconv.Itoa(v.Level) + "%"
	case ValueTemperature:
		return strconv.Itoa(v.Level) + "°C"
	default:
		return "ON"
	}
}

// ParseValue parses a display string into a Value legal for kind.
// Graduated kinds also accept a bare number ("24").
func ParseValue(kind ValueKind, s string) (Value, error) {
	raw := strings.TrimSpace(s)
	if strings.EqualFold(raw, "OFF") {
		return Off, nil
	}

	if !kind.Graduated() {
		if strings.EqualFold(raw, "ON") {
			return On(), nil
		}
		return Off, fmt.Errorf("invalid switch value %q (want ON or OFF)", s)
	}

	num := raw
	switch kind {
	case ValuePercentage:
		num = strings.TrimSuffix(num, "%")
	case ValueTemperature:
		num = strings.TrimSuffix(num, "°C")
		num = strings.TrimSuffix(num, "C")
		num = strings.TrimSuffix(num, "°")
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Off, fmt.Errorf("invalid %s value %q", kind, s)
	}
	v := Level(n)
	if !Legal(kind, v) {
		return Off, fmt.Errorf("%s value %q out of range", kind, s)
	}
	return v, nil
}

// Legal reports whether v is a representable value for kind.
func Legal(kind ValueKind, v Value) bool {
	if !v.On {
		return v.Level == 0
	}
	switch kind {
	case ValuePercentage:
		return v.Level >= PercentMin && v.Level <= PercentMax
	case ValueTemperature:
		return v.Level >= TemperatureMin && v.Level <= TemperatureMax
	default:
		return v.Level == 0
	}
}

// MinOn is the value an adjustment from OFF jumps to.
func MinOn(kind ValueKind) Value {
	switch kind {
	case ValuePercentage:
		return Level(PercentMinOn)
	case ValueTemperature:
		return Level(TemperatureMinOn)
	default:
		return On()
	}
}

// DefaultOn is the fallback default-on value when a layout omits one.
func DefaultOn(kind ValueKind) Value {
	switch kind {
	case ValuePercentage:
		return Level(50)
	case ValueTemperature:
		return Level(24)
	default:
		return On()
	}
}

// Toggled returns the value a select/toggle action produces.
// Switches flip; graduated devices go OFF -> defaultOn, anything else -> OFF.
func Toggled(kind ValueKind, v, defaultOn Value) Value {
	if !kind.Graduated() {
		return Value{On: !v.On}
	}
	if !v.On {
		return defaultOn
	}
	return Off
}

// Stepped returns the value after one adjustment step in dir and whether
// anything changed. Percentage devices stepping to 0% turn OFF; temperature
// devices stop at their floor and stay on.
func Stepped(kind ValueKind, v Value, dir Direction) (Value, bool) {
	if !kind.Graduated() {
		return v, false
	}
	if !v.On {
		if dir == Up {
			return MinOn(kind), true
		}
		return v, false
	}

	step, lo, hi := PercentStep, PercentMin, PercentMax
	if kind == ValueTemperature {
		step, lo, hi = TemperatureStep, TemperatureMin, TemperatureMax
	}

	n := v.Level + int(dir)*step
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}

	next := Level(n)
	if kind == ValuePercentage && n == 0 {
		next = Off
	}
	return next, next != v
}
