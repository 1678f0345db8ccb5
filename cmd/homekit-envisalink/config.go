package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	envisalink "github.com/caarlos0/homekit-envisalink"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host               string        `env:"HOST,notEmpty"`
	Port               string        `env:"PORT"                 envDefault:"1883"`
	Username           string        `env:"USERNAME"`
	Password           string        `env:"PASSWORD"`
	TopicPrefix        string        `env:"TOPIC_PREFIX"         envDefault:"envisalink"`
	PIN                string        `env:"PIN,notEmpty"`
	Partitions         []string      `env:"PARTITIONS"           envDefault:"Alarm"`
	MotionZones        []int         `env:"MOTION"`
	DoorZones          []int         `env:"DOOR"`
	WindowZones        []int         `env:"WINDOW"`
	LeakZones          []int         `env:"LEAK"`
	SmokeZones         []int         `env:"SMOKE"`
	ZoneNames          []string      `env:"ZONE_NAMES"`
	SmokePrograms      []int         `env:"SMOKE_PROGRAMS"`
	ZonesFile          string        `env:"ZONES_FILE"`
	SuppressClockReset bool          `env:"SUPPRESS_CLOCK_RESET"`
	DisableNightArm    bool          `env:"DISABLE_NIGHT_ARM"    envDefault:"true"`
	AckTimeout         time.Duration `env:"ACK_TIMEOUT"          envDefault:"10s"`
	Address            string        `env:"LISTEN"               envDefault:":9009"`
	Debug              bool          `env:"DEBUG"`

	file fileConfig
}

// fileConfig is the optional YAML file describing partitions, zones and
// programs, for setups that outgrow plain env lists.
type fileConfig struct {
	Partitions []filePartition `yaml:"partitions"`
	Zones      []fileZone      `yaml:"zones"`
	Programs   []fileProgram   `yaml:"programs"`
}

type filePartition struct {
	Name string `yaml:"name"`
	PIN  string `yaml:"pin"`
}

type fileZone struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Zone      int    `yaml:"zone"`
	Partition int    `yaml:"partition"`
}

type fileProgram struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Partition int    `yaml:"partition"`
}

func (c *Config) loadZonesFile() error {
	if c.ZonesFile == "" {
		return nil
	}
	bts, err := os.ReadFile(c.ZonesFile)
	if err != nil {
		return fmt.Errorf("could not read zones file: %w", err)
	}
	if err := yaml.Unmarshal(bts, &c.file); err != nil {
		return fmt.Errorf("could not parse zones file: %w", err)
	}
	return nil
}

func (c Config) broker() string {
	return "tcp://" + net.JoinHostPort(c.Host, c.Port)
}

type zoneConfig struct {
	number    int
	name      string
	kind      envisalink.Kind
	partition int
}

func (c Config) zoneName(n int) string {
	names := c.ZoneNames
	if len(names) > n-1 {
		if n := names[n-1]; n != "" {
			return n
		}
	}
	return fmt.Sprintf("Zone %d", n)
}

type allZoneConfigs []zoneConfig

func (a allZoneConfigs) String() string {
	var zones []string
	for _, zone := range a {
		zones = append(
			zones,
			fmt.Sprintf("zone %d: %q (%s)", zone.number, zone.name, zone.kind.String()),
		)
	}
	return strings.Join(zones, "\n")
}

// allZones returns every configured zone, sorted by number. Zones reusing a
// number already taken are dropped with a warning: env lists win over the
// zones file, in the order motion, door, window, leak, smoke.
func (c Config) allZones() []zoneConfig {
	var candidates []zoneConfig
	for _, list := range []struct {
		kind    envisalink.Kind
		numbers []int
	}{
		{envisalink.KindMotion, c.MotionZones},
		{envisalink.KindDoor, c.DoorZones},
		{envisalink.KindWindow, c.WindowZones},
		{envisalink.KindLeak, c.LeakZones},
		{envisalink.KindSmoke, c.SmokeZones},
	} {
		for _, z := range list.numbers {
			candidates = append(candidates, zoneConfig{
				number:    z,
				name:      c.zoneName(z),
				kind:      list.kind,
				partition: 1,
			})
		}
	}

	for i, z := range c.file.Zones {
		kind, err := envisalink.ParseKind(z.Type)
		if err != nil {
			log.Error("ignoring zone", "name", z.Name, "err", err)
			continue
		}
		number := z.Zone
		if number == 0 {
			number = i + 1
		}
		name := z.Name
		if name == "" {
			name = c.zoneName(number)
		}
		partition := z.Partition
		if partition == 0 {
			partition = 1
		}
		candidates = append(candidates, zoneConfig{
			number:    number,
			name:      name,
			kind:      kind,
			partition: partition,
		})
	}

	var zones []zoneConfig
	seen := map[int]bool{}
	for _, z := range candidates {
		if seen[z.number] {
			log.Warn(
				"duplicate zone number, zone will be ignored",
				"zone", z.number,
				"name", z.name,
			)
			continue
		}
		seen[z.number] = true
		zones = append(zones, z)
	}

	slices.SortFunc(zones, func(a, b zoneConfig) int {
		return a.number - b.number
	})
	return zones
}

// firstProgramIndex is the first index not used by any zone, so program
// accessories never collide with zone accessories.
func (c Config) firstProgramIndex(zones []zoneConfig) int {
	highest := len(zones)
	for _, z := range zones {
		if z.number > highest {
			highest = z.number
		}
	}
	return highest + 1
}

// requestTimeout bounds a HomeKit target state write: every send of a busy
// command waiting for its ack, plus the delays between retries.
func (c Config) requestTimeout() time.Duration {
	sends := time.Duration(envisalink.MaxRetries + 1)
	return c.AckTimeout*sends + envisalink.DefaultRetryDelay*(sends-1)
}

func (c Config) programs() []envisalink.Program {
	var programs []envisalink.Program
	for i, partition := range c.SmokePrograms {
		programs = append(programs, envisalink.Program{
			Name:      fmt.Sprintf("Smoke %d", i+1),
			Partition: partition,
		})
	}
	for _, p := range c.file.Programs {
		if p.Type != envisalink.KindSmoke.String() {
			log.Error("ignoring program", "name", p.Name, "err", fmt.Sprintf("unhandled accessory type: %q", p.Type))
			continue
		}
		programs = append(programs, envisalink.Program{
			Name:      p.Name,
			Partition: p.Partition,
		})
	}
	return programs
}

func (c Config) partitions() []envisalink.PartitionConfig {
	var result []envisalink.PartitionConfig
	if len(c.file.Partitions) > 0 {
		for _, p := range c.file.Partitions {
			result = append(result, envisalink.PartitionConfig{Name: p.Name, PIN: p.PIN})
		}
		return result
	}
	for _, name := range c.Partitions {
		result = append(result, envisalink.PartitionConfig{Name: name})
	}
	return result
}

func (c Config) targetStates() []envisalink.SecurityState {
	if c.DisableNightArm {
		return envisalink.SelectableTargets(envisalink.NightArm)
	}
	return envisalink.SelectableTargets()
}

func (c Config) options(configured []zoneConfig) envisalink.Options {
	var zones []envisalink.Zone
	for _, z := range configured {
		zones = append(zones, envisalink.Zone{
			Number:    z.number,
			Name:      z.name,
			Kind:      z.kind,
			Partition: z.partition,
		})
	}
	return envisalink.Options{
		PIN:                c.PIN,
		Partitions:         c.partitions(),
		Zones:              zones,
		Programs:           c.programs(),
		FirstProgramIndex:  c.firstProgramIndex(configured),
		SuppressClockReset: c.SuppressClockReset,
	}
}
