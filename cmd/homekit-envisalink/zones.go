package main

import (
	"github.com/brutella/hap/accessory"
	envisalink "github.com/caarlos0/homekit-envisalink"
)

const zoneIDOffset = 100

func setupZones(accessories *Accessories, bridge *envisalink.Bridge) []*AlarmSensor {
	var sensors []*AlarmSensor
	for _, zone := range bridge.Zones().Zones() {
		number := zone.Number
		a := newAlarmSensor(accessory.Info{
			Name:         zone.Name,
			Manufacturer: manufacturer,
		}, zone.Number, zone.Kind)
		a.Update(zone.Detected())
		a.pull(func() bool {
			detected, _ := bridge.Zones().Detected(number)
			return detected
		})
		a.Id = uint64(zoneIDOffset + zone.Number)
		accessories.addSensor(zone.Number, a)
		sensors = append(sensors, a)
	}
	return sensors
}
