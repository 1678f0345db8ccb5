package main

import (
	"net/http"
	"sync"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	envisalink "github.com/caarlos0/homekit-envisalink"
)

// Accessories holds every HomeKit accessory and receives the state changes
// computed by the bridge.
type Accessories struct {
	mu       sync.RWMutex
	alarms   map[int]*SecuritySystem
	sensors  map[int]*AlarmSensor
	programs map[int]*AlarmSensor
}

var _ envisalink.Sink = &Accessories{}

func newAccessories() *Accessories {
	return &Accessories{
		alarms:   map[int]*SecuritySystem{},
		sensors:  map[int]*AlarmSensor{},
		programs: map[int]*AlarmSensor{},
	}
}

func (a *Accessories) addAlarm(partition int, alarm *SecuritySystem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alarms[partition] = alarm
}

func (a *Accessories) addSensor(zone int, sensor *AlarmSensor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sensors[zone] = sensor
}

func (a *Accessories) addProgram(index int, sensor *AlarmSensor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.programs[index] = sensor
}

func (a *Accessories) alarm(partition int) (*SecuritySystem, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	alarm, ok := a.alarms[partition]
	if !ok {
		log.Debug("no accessory for partition", "partition", partition)
	}
	return alarm, ok
}

func (a *Accessories) SetCurrentState(partition int, state envisalink.SecurityState) {
	if alarm, ok := a.alarm(partition); ok {
		alarm.setCurrentState(state)
	}
}

// SetTargetState writes the target state. Writes that do not echo the panel
// are deferred so they land after the HomeKit request being served returns.
func (a *Accessories) SetTargetState(partition int, state envisalink.SecurityState, echo bool) {
	alarm, ok := a.alarm(partition)
	if !ok {
		return
	}
	if echo {
		alarm.setTargetState(state)
		return
	}
	go alarm.setTargetState(state)
}

func (a *Accessories) SetObstruction(partition int, obstructed bool) {
	if alarm, ok := a.alarm(partition); ok {
		alarm.setObstruction(obstructed)
	}
}

func (a *Accessories) SetZone(zone int, _ envisalink.Kind, value bool) {
	a.mu.RLock()
	sensor, ok := a.sensors[zone]
	a.mu.RUnlock()
	if !ok {
		log.Debug("no accessory for zone", "zone", zone)
		return
	}
	sensor.Update(value)
}

func (a *Accessories) SetProgram(index int, detected bool) {
	a.mu.RLock()
	sensor, ok := a.programs[index]
	a.mu.RUnlock()
	if !ok {
		log.Debug("no accessory for program", "index", index)
		return
	}
	sensor.Update(detected)
}

func (a *Accessories) SetBattery(status envisalink.BatteryStatus) {
	batteryGauge.Set(float64(status.Level()))
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, alarm := range a.alarms {
		alarm.setBattery(status)
	}
}

type AlarmSensor struct {
	*accessory.A
	Kind    envisalink.Kind
	Number  int
	Motion  *service.MotionSensor
	Contact *service.ContactSensor
	Leak    *service.LeakSensor
	Smoke   *service.SmokeSensor
}

func newAlarmSensor(info accessory.Info, number int, kind envisalink.Kind) *AlarmSensor {
	a := AlarmSensor{
		Kind:   kind,
		Number: number,
	}
	a.A = accessory.New(info, accessory.TypeSensor)

	switch kind {
	case envisalink.KindMotion:
		a.Motion = service.NewMotionSensor()
		a.AddS(a.Motion.S)
	case envisalink.KindDoor, envisalink.KindWindow:
		a.Contact = service.NewContactSensor()
		a.AddS(a.Contact.S)
	case envisalink.KindLeak:
		a.Leak = service.NewLeakSensor()
		a.AddS(a.Leak.S)
	case envisalink.KindSmoke:
		a.Smoke = service.NewSmokeSensor()
		a.AddS(a.Smoke.S)
	}

	return &a
}

// Update sets the value exposed to HomeKit. For contact sensors value means
// contact detected; for every other kind it means something was detected.
func (sensor *AlarmSensor) Update(value bool) {
	open := value
	if sensor.Kind.IsContact() {
		open = !value
	}
	openGauge.WithLabelValues(sensor.Name()).Set(boolAs[float64](open))

	if sensor.Value() == value {
		return
	}
	switch sensor.Kind {
	case envisalink.KindMotion:
		sensor.Motion.MotionDetected.SetValue(value)
	case envisalink.KindDoor, envisalink.KindWindow:
		state := characteristic.ContactSensorStateContactNotDetected
		if value {
			state = characteristic.ContactSensorStateContactDetected
		}
		_ = sensor.Contact.ContactSensorState.SetValue(state)
	case envisalink.KindLeak:
		_ = sensor.Leak.LeakDetected.SetValue(boolAs[int](value))
	case envisalink.KindSmoke:
		_ = sensor.Smoke.SmokeDetected.SetValue(boolAs[int](value))
	default:
		return
	}
	log.Info(
		sensor.Kind.String(),
		"number", sensor.Number,
		"name", sensor.Name(),
		"value", value,
	)
}

// pull makes HomeKit reads go through fn instead of the cached value.
func (sensor *AlarmSensor) pull(fn func() bool) {
	var c *characteristic.C
	value := func(v bool) interface{} { return boolAs[int](v) }
	switch sensor.Kind {
	case envisalink.KindMotion:
		c = sensor.Motion.MotionDetected.C
		value = func(v bool) interface{} { return v }
	case envisalink.KindDoor, envisalink.KindWindow:
		c = sensor.Contact.ContactSensorState.C
		value = func(v bool) interface{} {
			if v {
				return characteristic.ContactSensorStateContactDetected
			}
			return characteristic.ContactSensorStateContactNotDetected
		}
	case envisalink.KindLeak:
		c = sensor.Leak.LeakDetected.C
	case envisalink.KindSmoke:
		c = sensor.Smoke.SmokeDetected.C
	default:
		return
	}
	c.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return value(fn()), hap.JsonStatusSuccess
	}
}

// Value returns the value currently exposed to HomeKit, using the same
// polarity as Update.
func (sensor *AlarmSensor) Value() bool {
	switch sensor.Kind {
	case envisalink.KindMotion:
		return sensor.Motion.MotionDetected.Value()
	case envisalink.KindDoor, envisalink.KindWindow:
		return sensor.Contact.ContactSensorState.Value() == characteristic.ContactSensorStateContactDetected
	case envisalink.KindLeak:
		return sensor.Leak.LeakDetected.Value() == characteristic.LeakDetectedLeakDetected
	case envisalink.KindSmoke:
		return sensor.Smoke.SmokeDetected.Value() == characteristic.SmokeDetectedSmokeDetected
	}
	return false
}
