package main

import (
	"context"
	"net/http"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	envisalink "github.com/caarlos0/homekit-envisalink"
)

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem
	Obstruction    *characteristic.ObstructionDetected
	LowBattery     *characteristic.StatusLowBattery
	BatteryLevel   *characteristic.BatteryLevel

	partition *envisalink.Partition
	timeout   time.Duration
}

func NewSecuritySystem(
	info accessory.Info,
	partition *envisalink.Partition,
	targets []envisalink.SecurityState,
	timeout time.Duration,
) *SecuritySystem {
	a := &SecuritySystem{
		partition: partition,
		timeout:   timeout,
	}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.Obstruction = characteristic.NewObstructionDetected()
	a.SecuritySystem.AddC(a.Obstruction.C)

	a.LowBattery = characteristic.NewStatusLowBattery()
	a.SecuritySystem.AddC(a.LowBattery.C)

	a.BatteryLevel = characteristic.NewBatteryLevel()
	a.SecuritySystem.AddC(a.BatteryLevel.C)

	current := a.SecuritySystem.SecuritySystemCurrentState
	current.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return int(partition.CurrentState()), hap.JsonStatusSuccess
	}

	target := a.SecuritySystem.SecuritySystemTargetState
	target.ValidVals = nil
	for _, s := range targets {
		target.ValidVals = append(target.ValidVals, int(s))
	}
	target.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return int(partition.TargetState()), hap.JsonStatusSuccess
	}
	target.SetValueRequestFunc = a.updateHandler

	a.Obstruction.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return partition.Obstructed(), hap.JsonStatusSuccess
	}

	_ = current.SetValue(int(partition.CurrentState()))
	_ = target.SetValue(int(partition.TargetState()))
	a.Obstruction.SetValue(partition.Obstructed())

	return a
}

func (a *SecuritySystem) setCurrentState(state envisalink.SecurityState) {
	armStateGauge.WithLabelValues(a.partition.Name).Set(float64(state))
	if a.SecuritySystem.SecuritySystemCurrentState.Value() == int(state) {
		return
	}
	err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(int(state))
	log.Info("set current state", "partition", a.partition.Number, "state", state, "err", err)
}

func (a *SecuritySystem) setTargetState(state envisalink.SecurityState) {
	if a.SecuritySystem.SecuritySystemTargetState.Value() == int(state) {
		return
	}
	err := a.SecuritySystem.SecuritySystemTargetState.SetValue(int(state))
	log.Info("set target state", "partition", a.partition.Number, "state", state, "err", err)
}

func (a *SecuritySystem) setObstruction(obstructed bool) {
	obstructedGauge.WithLabelValues(a.partition.Name).Set(boolAs[float64](obstructed))
	if a.Obstruction.Value() == obstructed {
		return
	}
	a.Obstruction.SetValue(obstructed)
	log.Info("set obstructed", "partition", a.partition.Number, "obstructed", obstructed)
}

func (a *SecuritySystem) setBattery(status envisalink.BatteryStatus) {
	_ = a.LowBattery.SetValue(boolAs[int](status == envisalink.BatteryStatusLow))
	_ = a.BatteryLevel.SetValue(status.Level())
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	r *http.Request,
) (response interface{}, code int) {
	requested := envisalink.SecurityState(v.(int))
	log.Info("set alarm target state", "partition", a.partition.Number, "state", requested)

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	state, ok := a.partition.SetTargetState(ctx, requested)
	if !ok {
		log.Error("could not set alarm state", "partition", a.partition.Number, "state", requested)
		return nil, hap.JsonStatusResourceBusy
	}
	if state != requested {
		log.Warn(
			"partition not ready, kept disarmed",
			"partition", a.partition.Number,
			"requested", requested,
			"state", state,
		)
		return nil, hap.JsonStatusInvalidValueInRequest
	}
	return nil, hap.JsonStatusSuccess
}
