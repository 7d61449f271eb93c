package bluetooth

// Device describes a function call interface to invoke device related functions.
// A Device is obtained from Session.Connect and stays valid until Disconnect is called.
type Device interface {
	// Address returns the Bluetooth address of the device.
	Address() MacAddress

	// Path returns the object path of the device.
	Path() string

	// Connected reports whether the device is connected.
	Connected() bool

	// ServicesResolved reports whether the GATT services of the device are resolved.
	ServicesResolved() bool

	// ServiceUUIDs returns the UUIDs of the services offered by the device.
	ServiceUUIDs() ([]string, error)

	// CharacteristicUUIDs returns the UUIDs of all GATT characteristics of the device.
	CharacteristicUUIDs() ([]string, error)

	// Characteristic looks up a GATT characteristic by its UUID.
	Characteristic(uuid string) (Characteristic, error)

	// Disconnect disconnects the device and releases all its resources.
	// Remote errors are logged, but the handle is always released.
	Disconnect()
}

// DisconnectHandler describes a function which is called when a connected
// device is disconnected by the remote side or the adapter.
type DisconnectHandler func(d Device)

// ScanHandler describes a function which is called for each discovered device.
type ScanHandler func(device DeviceData)

// DeviceData holds the bluetooth device information published by the adapter service.
type DeviceData struct {
	// Address holds the Bluetooth MAC address of the device.
	Address MacAddress `json:"address,omitempty" codec:"Address,omitempty" doc:"The Bluetooth MAC address of the device."`

	// AddressType holds the LE address type of the device ("public" or "random").
	AddressType string `json:"address_type,omitempty" codec:"AddressType,omitempty" doc:"The LE address type of the device."`

	// Name holds the name of the device.
	Name string `json:"name,omitempty" codec:"Name,omitempty" doc:"The name of the device."`

	// Alias holds the optional or user-assigned name for the device.
	Alias string `json:"alias,omitempty" codec:"Alias,omitempty" doc:"The optional or user-assigned name for the device."`

	// RSSI holds the signal strength of the device, if it was discovered.
	RSSI int16 `json:"rssi,omitempty" codec:"RSSI,omitempty" doc:"The signal strength of the device."`

	// TxPower holds the advertised transmission power level.
	TxPower int16 `json:"tx_power,omitempty" codec:"TxPower,omitempty" doc:"The advertised transmission power level."`

	// UUIDs holds the list of advertised or resolved service UUIDs.
	UUIDs []string `json:"uuids,omitempty" codec:"UUIDs,omitempty" doc:"The list of service UUIDs."`

	// Paired indicates if the device is paired.
	Paired bool `json:"paired,omitempty" codec:"Paired,omitempty" doc:"Indicates if the device is paired."`

	// Connected indicates if the device is connected.
	Connected bool `json:"connected,omitempty" codec:"Connected,omitempty" doc:"Indicates if the device is connected."`

	// ServicesResolved indicates if the GATT services of the device are resolved.
	ServicesResolved bool `json:"services_resolved,omitempty" codec:"ServicesResolved,omitempty" doc:"Indicates if the GATT services are resolved."`
}

// DisplayName returns the alias or name of the device, or its address if neither is set.
func (d DeviceData) DisplayName() string {
	switch {
	case d.Alias != "":
		return d.Alias

	case d.Name != "":
		return d.Name
	}

	return d.Address.String()
}
