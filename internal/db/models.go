package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SensorSample is one IMU reading from a foot-mounted device. Devices are
// keyed by MAC; DeviceName holds the hardware type prefix.
type SensorSample struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	Timestamp  time.Time `gorm:"index;index:idx_sample_device_time,priority:2;not null"`
	DeviceName string    `gorm:"size:64;index"`
	DeviceMAC  string    `gorm:"column:device_mac;size:32;index:idx_sample_device_time,priority:1;not null"`

	AccelX, AccelY, AccelZ float64
	GyroX, GyroY, GyroZ    float64
	AngleX, AngleY, AngleZ float64
	MagX, MagY, MagZ       float64

	Quaternion0 float64 `gorm:"column:quaternion_0"`
	Quaternion1 float64 `gorm:"column:quaternion_1"`
	Quaternion2 float64 `gorm:"column:quaternion_2"`
	Quaternion3 float64 `gorm:"column:quaternion_3"`

	Temperature     float64
	FirmwareVersion string `gorm:"size:32"`
	BatteryLevel    int

	// ExpiresAt is when the retention worker may delete this row.
	// Nil never expires.
	ExpiresAt *time.Time `gorm:"index"`

	// UploadedBy is the API key the sample arrived with; 0 for stream and
	// file imports.
	UploadedBy uint `gorm:"index"`
}

// PressureFrame is one insole pressure-matrix reading.
type PressureFrame struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	Timestamp  time.Time `gorm:"index;not null"`
	DeviceName string    `gorm:"size:64;index"`
	SensorType string    `gorm:"size:32;index"`

	Subject      string     `gorm:"size:64;index:idx_frame_session,priority:1"`
	Activity     string     `gorm:"size:64;index:idx_frame_session,priority:2"`
	TrialNumber  int        `gorm:"index:idx_frame_session,priority:3;default:1"`
	DateRecorded *time.Time `gorm:"type:date"`
	Filename     string     `gorm:"size:255"`

	// Points holds up to PressurePoints readings; nil entries were blank or
	// unparseable in the source.
	Points datatypes.JSONType[[]*float64] `gorm:"type:json"`
}

// PressurePoints is the size of the insole sensor matrix.
const PressurePoints = 108

// Report triggers.
const (
	TriggerAPI    = "api"
	TriggerWorker = "worker"
)

// GaitReport is one persisted analysis run.
type GaitReport struct {
	ID uint `gorm:"primaryKey"`

	RunID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`

	CreatedAt time.Time `gorm:"index"`

	WindowStart *time.Time
	WindowEnd   *time.Time

	SampleCount  int
	StepCount    int
	Cadence      float64
	ContactTime  float64
	DominantZone string `gorm:"size:16"`
	LeftDevice   string `gorm:"size:32"`
	RightDevice  string `gorm:"size:32"`
	Trigger      string `gorm:"size:16;index"`
	ReportText   string `gorm:"type:text"`

	Metrics        datatypes.JSONMap            `gorm:"type:json"`
	IgnoredDevices datatypes.JSONType[[]string] `gorm:"type:json"`
}
