package domain

import "strings"

type Device string

const (
	DeviceLED       Device = "led"
	DeviceLight     Device = "light"
	DeviceFan       Device = "fan"
	DeviceProjector Device = "projector"

	// DeviceAll is the composite pseudo-device. It is expanded, never dispatched.
	DeviceAll Device = "all"
)

type State string

const (
	StateOn  State = "on"
	StateOff State = "off"
)

// Endpoint identifies a device+state pair, formatted "<device>/<state>".
// It doubles as the HTTP path on the controller board.
type Endpoint string

const (
	EndpointLEDOn        Endpoint = "led/on"
	EndpointLEDOff       Endpoint = "led/off"
	EndpointLightOn      Endpoint = "light/on"
	EndpointLightOff     Endpoint = "light/off"
	EndpointFanOn        Endpoint = "fan/on"
	EndpointFanOff       Endpoint = "fan/off"
	EndpointProjectorOn  Endpoint = "projector/on"
	EndpointProjectorOff Endpoint = "projector/off"

	EndpointAllOn  Endpoint = "all/on"
	EndpointAllOff Endpoint = "all/off"
)

// composites lists the members of each composite endpoint in dispatch order.
// The order follows the relay wiring, not the alphabet.
var composites = map[Endpoint][]Endpoint{
	EndpointAllOn:  {EndpointLEDOn, EndpointLightOn, EndpointProjectorOn, EndpointFanOn},
	EndpointAllOff: {EndpointLEDOff, EndpointLightOff, EndpointProjectorOff, EndpointFanOff},
}

func NewEndpoint(d Device, s State) Endpoint {
	return Endpoint(string(d) + "/" + string(s))
}

func (e Endpoint) Device() Device {
	d, _, _ := strings.Cut(string(e), "/")
	return Device(d)
}

func (e Endpoint) State() State {
	_, s, _ := strings.Cut(string(e), "/")
	return State(s)
}

func (e Endpoint) Path() string {
	return string(e)
}

func (e Endpoint) IsComposite() bool {
	_, ok := composites[e]
	return ok
}

// Valid reports whether e belongs to the closed endpoint set.
func (e Endpoint) Valid() bool {
	if e.IsComposite() {
		return true
	}
	switch e.State() {
	case StateOn, StateOff:
	default:
		return false
	}
	switch e.Device() {
	case DeviceLED, DeviceLight, DeviceFan, DeviceProjector:
		return true
	default:
		return false
	}
}

// Expand returns the concrete endpoints to dispatch for e. A concrete
// endpoint expands to itself. The returned slice is a copy.
func Expand(e Endpoint) []Endpoint {
	members, ok := composites[e]
	if !ok {
		return []Endpoint{e}
	}
	out := make([]Endpoint, len(members))
	copy(out, members)
	return out
}
