package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	envisalink "github.com/caarlos0/homekit-envisalink"
	logp "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var index []byte

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	manufacturer     = "EyezOn"
	model            = "Envisalink"
	partitionIDStart = 2
)

// meteredLink counts every command sent to the panel.
type meteredLink struct {
	envisalink.Link
}

func (l meteredLink) Send(ctx context.Context, command string) (envisalink.Ack, error) {
	requestCounter.Inc()
	ack, err := l.Link.Send(ctx, command)
	if err != nil {
		requestErrorCounter.Inc()
		log.Error("command to panel failed", "err", err)
	}
	if ack.Busy() {
		busyCounter.Inc()
	}
	return ack, err
}

func main() {
	log.Info(
		"homekit-envisalink",
		"version", version,
		"commit", commit,
		"date", date,
		"info", strings.Join([]string{
			"Homekit bridge for Envisalink alarm panels",
			"© Carlos Alexandro Becker",
			"https://becker.software",
		}, "\n"),
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}
	if err := cfg.loadZonesFile(); err != nil {
		log.Fatal("could not load zones", "file", cfg.ZonesFile, "err", err)
	}
	if cfg.Debug {
		log.SetLevel(logp.DebugLevel)
		envisalink.SetLogLevel(logp.DebugLevel)
	}

	zones := cfg.allZones()
	log.Info(
		"loading accessories",
		"partitions", fmt.Sprintf("%v", cfg.partitions()),
		"zones", allZoneConfigs(zones).String(),
		"targets", fmt.Sprintf("%v", cfg.targetStates()),
	)

	link := envisalink.NewMQTTLink(envisalink.MQTTConfig{
		Broker:      cfg.broker(),
		Username:    cfg.Username,
		Password:    cfg.Password,
		TopicPrefix: cfg.TopicPrefix,
		AckTimeout:  cfg.AckTimeout,
	})

	accessories := newAccessories()
	alarmBridge := envisalink.New(meteredLink{link}, accessories, cfg.options(zones))

	bridge := accessory.NewBridge(accessory.Info{
		Name:         "Alarm Bridge",
		Manufacturer: manufacturer,
		Model:        model,
		Firmware:     version,
	})

	var alarms []*SecuritySystem
	for i, partition := range alarmBridge.Partitions() {
		alarm := NewSecuritySystem(accessory.Info{
			Name:         partition.Name,
			Manufacturer: manufacturer,
			Model:        model,
			Firmware:     version,
		}, partition, cfg.targetStates(), cfg.requestTimeout())
		alarm.Id = uint64(partitionIDStart + i)
		accessories.addAlarm(partition.Number, alarm)
		alarms = append(alarms, alarm)
	}

	sensors := setupZones(accessories, alarmBridge)
	programs := setupPrograms(accessories, alarmBridge)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	if err := link.Connect(ctx, alarmBridge); err != nil {
		log.Fatal("could not connect to broker", "broker", cfg.broker(), "err", err)
	}
	defer func() {
		if err := link.Close(); err != nil {
			log.Error("could not close link", "err", err)
		}
	}()

	alarmBridge.Start(ctx)
	defer alarmBridge.Close()

	fs := hap.NewFsStore("./db")

	server, err := hap.NewServer(
		fs, bridge.A,
		securityAccessories(alarms, sensors, programs)...,
	)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var hPartitions []PageItem
		for _, partition := range alarmBridge.Partitions() {
			hPartitions = append(hPartitions, PageItem{
				Number:     partition.Number,
				Name:       partition.Name,
				State:      stateNames[partition.CurrentState()],
				Obstructed: partition.Obstructed(),
			})
		}

		var hZones []PageItem
		for _, zone := range alarmBridge.Zones().Zones() {
			hZones = append(hZones, PageItem{
				Number: zone.Number,
				Name:   zone.Name,
				Kind:   zone.Kind.String(),
				State:  zone.Status.Name,
				Open:   zone.Status.Hint == envisalink.HintOpen,
			})
		}

		var hPrograms []PageItem
		for _, program := range alarmBridge.Programs().Programs() {
			hPrograms = append(hPrograms, PageItem{
				Number: program.Index,
				Name:   program.Name,
				Kind:   envisalink.KindSmoke.String(),
				Open:   program.Detected,
			})
		}

		tpl := template.Must(template.New("index").Parse(string(index)))
		_ = tpl.Execute(w, struct {
			Battery    string
			Partitions []PageItem
			Zones      []PageItem
			Programs   []PageItem
		}{
			Battery:    alarmBridge.Battery().String(),
			Partitions: hPartitions,
			Zones:      hZones,
			Programs:   hPrograms,
		})
	}))

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

var stateNames = map[envisalink.SecurityState]string{
	envisalink.StayArm:        "Armed: Stay",
	envisalink.AwayArm:        "Armed: Away",
	envisalink.NightArm:       "Armed: Night",
	envisalink.Disarmed:       "Disarmed",
	envisalink.AlarmTriggered: "Alarm Triggered",
}

func securityAccessories(
	alarms []*SecuritySystem,
	sensors []*AlarmSensor,
	programs []*AlarmSensor,
) []*accessory.A {
	var result []*accessory.A
	for _, c := range alarms {
		result = append(result, c.A)
	}
	for _, c := range sensors {
		result = append(result, c.A)
	}
	for _, c := range programs {
		result = append(result, c.A)
	}
	return result
}

func boolAs[T int | float64](b bool) T {
	if b {
		return 1
	}
	return 0
}

type PageItem struct {
	Number     int
	Name       string
	Kind       string
	State      string
	Open       bool
	Obstructed bool
}
