package envisalink

// ZoneEvent is a status change of a single zone.
type ZoneEvent struct {
	Zone int
	Code string
	Mode string
}

// PartitionEvent is a status change of a single partition.
type PartitionEvent struct {
	Partition int
	Code      string
	Mode      string
}

// SystemEvent is a panel-wide status, optionally carrying a snapshot of the
// last raw code of every zone and partition.
type SystemEvent struct {
	Code       string
	Zones      map[int]string
	Partitions map[int]string
}
