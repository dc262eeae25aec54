package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSensorOutput = `iwlwifi_1-virtual-0
Adapter: Virtual device
temp1:        +35.0°C

nvme-pci-0300
Adapter: PCI adapter
Composite:    +36.9°C  (low  = -273.1°C, high = +81.8°C)
                       (crit = +84.8°C)
Sensor 1:     +36.9°C  (low  = -273.1°C, high = +65261.8°C)
Sensor 2:     +49.9°C  (low  = -273.1°C, high = +65261.8°C)

coretemp-isa-0000
Adapter: ISA adapter
Package id 0:  +48.0°C  (high = +101.0°C, crit = +115.0°C)
Core 0:        +46.0°C  (high = +101.0°C, crit = +115.0°C)
Core 1:        +45.0°C  (high = +101.0°C, crit = +115.0°C)

pch_cannonlake-virtual-0
Adapter: Virtual device
temp1:        +39.0°C
`

func TestParseSensorsText(t *testing.T) {
	readings := ParseSensorsText(testSensorOutput)
	require.Len(t, readings, 8)

	assert.Equal(t, Reading{Class: Unknown, Chip: "iwlwifi_1-virtual-0", Label: "temp1", Temp: 35}, readings[0])
	assert.Equal(t, Reading{Class: NVMe, Chip: "nvme-pci-0300", Label: "Composite", Temp: 36}, readings[1])
	assert.Equal(t, "Sensor 2", readings[3].Label)
	assert.Equal(t, 49, readings[3].Temp)

	cpu, ok := FirstOf(readings, CPU)
	require.True(t, ok)
	assert.Equal(t, "Package id 0", cpu.Label)
	assert.Equal(t, 48, cpu.Temp)
	assert.Equal(t, "coretemp-isa-0000/Package id 0", cpu.Key())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		chip string
		want DeviceClass
	}{
		{"coretemp-isa-0000", CPU},
		{"k10temp", CPU},
		{"nvme-pci-0300", NVMe},
		{"nvme", NVMe},
		{"amdgpu-pci-0600", GPU},
		{"nvidia-gpu-0", GPU},
		{"iwlwifi_1-virtual-0", Unknown},
		{"some-unknown-chip", Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.chip), tt.chip)
	}
	assert.Equal(t, "NVMe SSD", FriendlyName("nvme-pci-0300"))
	assert.Equal(t, "Sensor", FriendlyName("mystery"))
}

func TestParseClass(t *testing.T) {
	for in, want := range map[string]DeviceClass{"CPU": CPU, "GPU": GPU, "NVMe": NVMe, "NVME": NVMe, "Unknown": Unknown} {
		got, ok := ParseClass(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
		if in != "NVME" {
			assert.Equal(t, in, got.String())
		}
	}
	_, ok := ParseClass("Type")
	assert.False(t, ok)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestHwmonPoll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hwmon0", "name"), "nvme\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp1_input"), "36850\n")
	writeFile(t, filepath.Join(root, "hwmon0", "temp1_label"), "Composite\n")
	writeFile(t, filepath.Join(root, "hwmon1", "name"), "coretemp\n")
	writeFile(t, filepath.Join(root, "hwmon1", "temp10_input"), "41000\n")
	writeFile(t, filepath.Join(root, "hwmon1", "temp10_label"), "Core 8\n")
	writeFile(t, filepath.Join(root, "hwmon1", "temp2_input"), "45999\n")
	writeFile(t, filepath.Join(root, "hwmon1", "temp2_label"), "Core 0\n")
	writeFile(t, filepath.Join(root, "hwmon1", "temp3_input"), "garbage\n")
	writeFile(t, filepath.Join(root, "hwmon2", "name"), "acpitz\n")
	writeFile(t, filepath.Join(root, "hwmon2", "temp1_input"), "27800\n")
	writeFile(t, filepath.Join(root, "not-hwmon", "name"), "coretemp\n")

	readings, err := NewHwmon(root).Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Reading{
		{Class: NVMe, Chip: "nvme", Label: "Composite", Temp: 36},
		{Class: CPU, Chip: "coretemp", Label: "Core 0", Temp: 45},
		{Class: CPU, Chip: "coretemp", Label: "Core 8", Temp: 41},
		{Class: Unknown, Chip: "acpitz", Label: "Unknown", Temp: 27},
	}, readings)
}

func TestHwmonMissingRoot(t *testing.T) {
	_, err := NewHwmon(filepath.Join(t.TempDir(), "absent")).Poll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestMulti(t *testing.T) {
	ok := SourceFunc(func(context.Context) ([]Reading, error) {
		return []Reading{{Class: CPU, Label: "Core 0", Temp: 40}}, nil
	})
	bad := SourceFunc(func(context.Context) ([]Reading, error) {
		return nil, ErrSourceUnavailable
	})

	readings, err := Multi{bad, ok}.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, readings, 1)

	_, err = Multi{bad, bad}.Poll(context.Background())
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestParseNvidiaQuery(t *testing.T) {
	readings := parseNvidiaQuery("0, NVIDIA GeForce RTX 3080, 54\n1, NVIDIA A100, n/a\n")
	require.Len(t, readings, 1)
	assert.Equal(t, Reading{Class: GPU, Chip: "nvidia-gpu-0", Label: "NVIDIA GeForce RTX 3080", Temp: 54}, readings[0])
}

func TestSplitSensorKey(t *testing.T) {
	chip, label := splitSensorKey("coretemp_core_0")
	assert.Equal(t, "coretemp", chip)
	assert.Equal(t, "core_0", label)

	chip, label = splitSensorKey("acpitz")
	assert.Equal(t, "acpitz", chip)
	assert.Equal(t, "Unknown", label)
}

func TestNewSource(t *testing.T) {
	src, err := New("hwmon", "", false, false)
	require.NoError(t, err)
	assert.IsType(t, &Hwmon{}, src)

	src, err = New("gopsutil", "", true, false)
	require.NoError(t, err)
	assert.IsType(t, Multi{}, src)

	src, err = New("lm-sensors", "", true, true)
	require.NoError(t, err)
	require.IsType(t, Multi{}, src)
	assert.Len(t, src.(Multi), 3)
	assert.IsType(t, Smartctl{}, src.(Multi)[2])

	_, err = New("bogus", "", false, false)
	assert.Error(t, err)
}

const smartAttrs = `SMART Attributes Data Structure revision number: 16
ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
  9 Power_On_Hours          0x0032   097   097   000    Old_age   Always       -       12345
190 Airflow_Temperature_Cel 0x0022   062   045   040    Old_age   Always       -       38
194 Temperature_Celsius     0x0022   036   055   000    Old_age   Always       -       36 (Min/Max 20/45)
`

func TestParseSmartTemp(t *testing.T) {
	temp, ok := parseSmartTemp(smartAttrs)
	require.True(t, ok)
	assert.Equal(t, 36, temp, "attribute 194 raw value wins")

	airflowOnly := strings.Replace(smartAttrs, "194 Temperature_Celsius", "231 Life_Left", 1)
	temp, ok = parseSmartTemp(airflowOnly)
	require.True(t, ok)
	assert.Equal(t, 38, temp)

	_, ok = parseSmartTemp("no attributes here")
	assert.False(t, ok)
}

func TestSmartctlWithoutDrives(t *testing.T) {
	readings, err := Smartctl{Devices: filepath.Join(t.TempDir(), "sd?")}.Poll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, readings)
}
