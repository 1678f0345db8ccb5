package main

import (
	"github.com/brutella/hap/accessory"
	envisalink "github.com/caarlos0/homekit-envisalink"
)

// setupPrograms creates one smoke sensor per smoke program. Their ids follow
// the zones', so they never collide.
func setupPrograms(accessories *Accessories, bridge *envisalink.Bridge) []*AlarmSensor {
	var sensors []*AlarmSensor
	for _, program := range bridge.Programs().Programs() {
		a := newAlarmSensor(accessory.Info{
			Name:         program.Name,
			Manufacturer: manufacturer,
		}, program.Index, envisalink.KindSmoke)
		a.Update(program.Detected)
		a.Id = uint64(zoneIDOffset + program.Index)
		accessories.addProgram(program.Index, a)
		sensors = append(sensors, a)
	}
	return sensors
}
