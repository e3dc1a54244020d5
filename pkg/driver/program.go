package driver

// programFile is the on-disk YAML shape.
type programFile struct {
	Services map[string]serviceSpec   `yaml:"services"`
	Tests    map[string][]testCommand `yaml:"tests"`
}

type serviceSpec struct {
	Vars    map[string]string     `yaml:"vars"`
	Defs    map[string]string     `yaml:"defs"`
	Imports map[string]importSpec `yaml:"imports"`
	Exports []string              `yaml:"exports"`
}

type importSpec struct {
	Service string `yaml:"service"`
	Name    string `yaml:"name"`
}

// testCommand is a single do/assert step. Exactly one of Do or Assert is
// set; the YAML document never mixes the two in one entry.
type testCommand struct {
	Do     string `yaml:"do,omitempty"`
	Assert string `yaml:"assert,omitempty"`
}
