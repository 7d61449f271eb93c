package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	addressColor = color.New(color.FgCyan, color.Bold)
	headerColor  = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgGreen)
	mutedColor   = color.New(color.FgHiBlack)
)

// printWarn prints a warning to the screen.
func printWarn(message string) {
	message = "[-] " + message

	color.New(color.FgYellow, color.Bold).Println(message)
}

// printError prints an error to the screen.
func printError(err error) {
	message := "[!] " + err.Error()

	color.New(color.FgRed, color.Bold).Println(message)
}

// printDevice prints a single line describing the device.
func printDevice(device bluetooth.DeviceData) {
	var status []string

	if device.AddressType != "" {
		status = append(status, device.AddressType)
	}
	if device.RSSI != 0 {
		status = append(status, fmt.Sprintf("%d dBm", device.RSSI))
	}
	if device.Paired {
		status = append(status, "paired")
	}
	if device.Connected {
		status = append(status, "connected")
	}

	fmt.Printf("%s  %s  %s\n",
		addressColor.Sprint(device.Address.String()),
		device.DisplayName(),
		mutedColor.Sprint("("+strings.Join(status, ", ")+")"),
	)
}

// printDeviceInfo prints the services and characteristics of a connected device.
func printDeviceInfo(device bluetooth.Device, services []string, chars []bluetooth.Characteristic) {
	addressColor.Println(device.Address().String())

	headerColor.Println("Services:")
	for _, uuid := range services {
		fmt.Println("  " + uuid)
	}

	headerColor.Println("Characteristics:")
	for _, c := range chars {
		fmt.Printf("  %s  %s\n", c.UUID(), mutedColor.Sprint(flagTitles(c.Flags())))
	}
}

// printValue prints a characteristic value as hex.
func printValue(c bluetooth.Characteristic, value []byte) {
	fmt.Printf("%s  %s\n", mutedColor.Sprint(c.UUID()), valueColor.Sprint(hex.EncodeToString(value)))
}

// flagTitles returns the title-cased names of the characteristic capabilities.
func flagTitles(flags bluetooth.CharacteristicFlags) string {
	names := flags.Names()
	title := cases.Title(language.Und, cases.NoLower)

	for i, name := range names {
		names[i] = title.String(strings.ReplaceAll(name, "-", " "))
	}

	return strings.Join(names, ", ")
}
