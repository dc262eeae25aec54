package sensor

import "strings"

// chipIdentityMap maps chip name prefixes to a device class and a
// friendly component name.
var chipIdentityMap = []struct {
	prefix string
	class  DeviceClass
	name   string
}{
	{"coretemp", CPU, "CPU"},
	{"k10temp", CPU, "CPU"},
	{"zenpower", CPU, "CPU"},
	{"cpu_thermal", CPU, "CPU"},
	{"amdgpu", GPU, "GPU (AMD)"},
	{"radeon", GPU, "GPU (AMD)"},
	{"nouveau", GPU, "GPU (NVIDIA)"},
	{"nvidia-gpu", GPU, "GPU (NVIDIA)"},
	{"nvidia", GPU, "GPU (NVIDIA)"},
	{"intel_gpu", GPU, "GPU (Intel)"},
	{"i915", GPU, "GPU (Intel)"},
	{"nvme", NVMe, "NVMe SSD"},
	{"drivetemp", Unknown, "HDD/SSD"},
	{"iwlwifi", Unknown, "WiFi"},
	{"pch", Unknown, "PCH (Chipset)"},
	{"acpi", Unknown, "ACPI Thermal"},
	{"nct", Unknown, "Motherboard"},
	{"it87", Unknown, "Motherboard"},
	{"thinkpad", Unknown, "Laptop EC"},
	{"bat", Unknown, "Battery"},
}

// Classify returns the device class for a chip or hwmon driver name.
func Classify(chip string) DeviceClass {
	lower := strings.ToLower(chip)
	for _, entry := range chipIdentityMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.class
		}
	}
	return Unknown
}

// FriendlyName returns a human-readable component name for a chip ID.
func FriendlyName(chip string) string {
	lower := strings.ToLower(chip)
	for _, entry := range chipIdentityMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.name
		}
	}
	return "Sensor"
}
