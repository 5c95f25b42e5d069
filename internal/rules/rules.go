// Package rules defines the keyword rule tables driving taxonomy
// classification. Tables are data, not code: the built-in defaults can be
// replaced wholesale from a YAML file without touching the classifier.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule scores one candidate label: every keyword occurrence contributes
// Weight to the label's total.
type Rule struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
}

// Table is the ordered rule set for one taxonomy dimension.
type Table struct {
	Dimension string `yaml:"dimension"`
	// Unknown is the fallback label when no rule scores above zero.
	Unknown string `yaml:"unknown"`
	Rules   []Rule `yaml:"rules"`
}

// Tables bundles the four independent classification dimensions.
type Tables struct {
	Vendor   Table `yaml:"vendor"`
	DocType  Table `yaml:"doc_type"`
	Topic    Table `yaml:"topic"`
	Topology Table `yaml:"topology"`
}

// Load reads rule tables from a YAML file. Dimensions missing from the file
// keep their built-in defaults.
func Load(path string) (Tables, error) {
	t := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse rules file: %w", err)
	}
	return t, nil
}

// Defaults returns the built-in rule tables for power-electronics PDF
// libraries.
func Defaults() Tables {
	return Tables{
		Vendor:   vendorTable(),
		DocType:  docTypeTable(),
		Topic:    topicTable(),
		Topology: topologyTable(),
	}
}

func vendorTable() Table {
	return Table{
		Dimension: "vendor",
		Unknown:   "Unknown",
		Rules: []Rule{
			{Label: "TI", Keywords: []string{"ti", "texas instruments", "ti.com"}, Weight: 1.0},
			{Label: "ST", Keywords: []string{"st", "stmicroelectronics", "st.com"}, Weight: 1.0},
			{Label: "ADI", Keywords: []string{"adi", "analog devices", "analog.com"}, Weight: 1.0},
			{Label: "Infineon", Keywords: []string{"infineon", "infineon.com"}, Weight: 1.0},
			{Label: "onsemi", Keywords: []string{"onsemi", "on semiconductor", "onsemi.com"}, Weight: 1.0},
			{Label: "Renesas", Keywords: []string{"renesas", "renesas.com"}, Weight: 1.0},
			{Label: "Microchip", Keywords: []string{"microchip", "microchip.com"}, Weight: 1.0},
			{Label: "ROHM", Keywords: []string{"rohm", "rohm.com"}, Weight: 1.0},
			{Label: "NXP", Keywords: []string{"nxp", "nxp.com"}, Weight: 1.0},
			{Label: "MPS", Keywords: []string{"mps", "monolithic power", "monolithicpower.com"}, Weight: 1.0},
			{Label: "PI", Keywords: []string{"power integrations", "powerint.com"}, Weight: 1.0},
			{Label: "Vicor", Keywords: []string{"vicor", "vicorpower.com"}, Weight: 1.0},
			{Label: "Littelfuse", Keywords: []string{"littelfuse", "littelfuse.com"}, Weight: 1.0},
			{Label: "Bourns", Keywords: []string{"bourns", "bourns.com"}, Weight: 1.0},
			{Label: "Nexperia", Keywords: []string{"nexperia", "nexperia.com"}, Weight: 1.0},
			{Label: "Vishay", Keywords: []string{"vishay", "vishay.com"}, Weight: 1.0},
			{Label: "Murata", Keywords: []string{"murata", "murata.com"}, Weight: 1.0},
			{Label: "TDK", Keywords: []string{"tdk", "tdk.com", "tdk electronics"}, Weight: 1.0},
			{Label: "Wurth", Keywords: []string{"wurth", "würth", "we-online", "wurth elektronik"}, Weight: 1.0},
			{Label: "Kemet", Keywords: []string{"kemet", "kemet.com"}, Weight: 1.0},
			{Label: "Semtech", Keywords: []string{"semtech", "semtech.com"}, Weight: 1.0},
			{Label: "Laird", Keywords: []string{"laird", "laird connectivity", "lairdtech"}, Weight: 1.0},
			{Label: "Fair-Rite", Keywords: []string{"fair-rite", "fair rite"}, Weight: 1.0},
		},
	}
}

func docTypeTable() Table {
	return Table{
		Dimension: "doc_type",
		Unknown:   "unknown",
		Rules: []Rule{
			{Label: "datasheet", Weight: 1.0, Keywords: []string{
				"datasheet", "data sheet",
				"electrical characteristics", "absolute maximum ratings",
				"pin configuration", "typical application", "ordering information",
				"mechanical data", "package information", "thermal characteristics",
			}},
			{Label: "application_note", Weight: 1.0, Keywords: []string{
				"application note", "design considerations", "compensation",
				"loop stability", "layout guidelines", "design guide",
				"implementation", "practical design",
			}},
			{Label: "reference_design", Weight: 1.0, Keywords: []string{
				"reference design", "bom", "bill of materials", "schematic",
				"test results", "design files", "gerber", "assembly drawing",
			}},
			{Label: "eval_user_guide", Weight: 1.0, Keywords: []string{
				"user guide", "evaluation module", "evm", "quick start",
				"getting started", "evaluation board", "user manual",
			}},
			{Label: "whitepaper", Weight: 0.8, Keywords: []string{
				"white paper", "technical article", "overview", "introduction to",
			}},
			{Label: "standard", Weight: 1.0, Keywords: []string{
				"iec", "ul", "iso", "gb/t", "standard", "specification", "compliance",
				"cispr", "sae", "iso 7637", "iso 16750", "iec 61000", "iec 62132",
				"aec-q100", "aec-q101", "aec-q200", "jedec", "normative", "annex",
			}},
			{Label: "test_report", Weight: 1.0, Keywords: []string{
				"test report", "test result", "measurement result", "compliance report",
				"qualification report", "emc test report", "immunity test",
				"emission test", "pass", "fail", "test configuration", "test setup",
				"test procedure", "certificate", "certification",
			}},
			{Label: "presentation", Weight: 0.7, Keywords: []string{
				"presentation", "slide", "seminar", "workshop", "training",
			}},
			{Label: "software", Weight: 0.8, Keywords: []string{
				"software", "firmware", "driver", "api", "programming guide", "sdk",
			}},
		},
	}
}

func topicTable() Table {
	return Table{
		Dimension: "topic",
		Unknown:   "unknown",
		Rules: []Rule{
			{Label: "power_ic", Weight: 1.0, Keywords: []string{
				"pmic", "controller", "regulator", "dc-dc", "dc/dc", "converter",
				"buck", "boost", "ldo", "switching regulator",
			}},
			{Label: "power_stage", Weight: 1.0, Keywords: []string{
				"mosfet", "gan", "sic", "gate driver", "half-bridge", "module",
				"power switch", "transistor", "igbt",
			}},
			{Label: "magnetics", Weight: 0.9, Keywords: []string{
				"inductor", "transformer", "magnetic", "core", "winding",
				"coupled inductor", "saturation",
			}},
			{Label: "emi_emc", Weight: 1.0, Keywords: []string{
				"emi", "emc", "cispr", "filter", "layout", "grounding",
				"electromagnetic interference", "noise", "conducted", "radiated",
				"electromagnetic compatibility", "emission", "susceptibility",
				"common mode", "differential mode", "shielding", "decoupling",
				"ferrite", "choke", "emi filter", "emc compliance",
				"spread spectrum", "frequency modulation", "near field",
				"spectrum analyzer", "ground plane",
			}},
			{Label: "transient_protection", Weight: 1.0, Keywords: []string{
				"transient", "tvs", "tvs diode", "transient voltage suppressor",
				"surge", "surge protection", "load dump", "clamping",
				"overvoltage", "overvoltage protection", "reverse battery",
				"reverse polarity", "iso 7637", "iso 16750", "pulse",
				"cold crank", "jump start", "voltage spike", "inrush",
				"crowbar", "varistor", "suppressor",
			}},
			{Label: "esd_protection", Weight: 1.0, Keywords: []string{
				"esd", "electrostatic discharge", "esd protection",
				"iec 61000-4-2", "human body model", "hbm", "charged device model",
				"cdm", "machine model", "esd suppressor", "esd diode",
				"system level esd", "contact discharge", "air discharge",
			}},
			{Label: "reliability_qualification", Weight: 1.0, Keywords: []string{
				"reliability", "qualification", "aec-q100", "aec-q101", "aec-q200",
				"htol", "htsl", "hast", "thermal cycling", "temperature cycling",
				"halt", "hass", "fmea", "mission profile", "lifetime",
				"accelerated life", "burn-in", "stress test", "environmental test",
				"vibration", "humidity", "salt spray", "mechanical shock",
				"mtbf", "fit rate", "failure analysis",
			}},
			{Label: "immunity_testing", Weight: 1.0, Keywords: []string{
				"immunity", "immunity test", "iec 61000-4-3", "iec 61000-4-4",
				"iec 61000-4-5", "iec 61000-4-6", "iec 62132",
				"bci", "bulk current injection", "dpi", "direct power injection",
				"radiated immunity", "conducted immunity", "rf immunity",
				"fast transient", "burst", "eft", "electrical fast transient",
				"tem cell", "stripline", "reverberation chamber",
			}},
			{Label: "control_loop", Weight: 0.9, Keywords: []string{
				"compensation", "stability", "bode", "phase margin", "loop",
				"frequency response", "transfer function", "feedback",
			}},
			{Label: "thermal", Weight: 0.8, Keywords: []string{
				"thermal", "junction", "heatsink", "derating", "temperature",
				"cooling", "thermal resistance",
			}},
			{Label: "safety_reliability", Weight: 0.9, Keywords: []string{
				"ovp", "ocp", "scp", "functional safety", "reliability", "fit",
				"mtbf", "protection", "fault", "fmea", "fmeda", "asil",
				"iso 26262", "diagnostic", "safe state",
			}},
			{Label: "system_solution", Weight: 0.8, Keywords: []string{
				"system", "solution", "architecture", "design guide",
				"platform", "multi-phase",
			}},
			{Label: "test_measurement", Weight: 0.9, Keywords: []string{
				"test setup", "measurement", "oscilloscope", "probe",
				"efficiency measurement", "characterization", "testing",
				"spectrum analyzer", "network analyzer", "lisn", "antenna",
				"pre-compliance", "test chamber", "anechoic",
			}},
			{Label: "automotive_electrical", Weight: 0.9, Keywords: []string{
				"automotive", "vehicle", "ecu", "car", "12v system", "24v system",
				"48v system", "mild hybrid", "power distribution", "wire harness",
				"can bus", "lin bus", "connector", "automotive grade",
				"iatf", "ppap", "apqp",
			}},
		},
	}
}

func topologyTable() Table {
	return Table{
		Dimension: "topology",
		Unknown:   "unknown",
		// More specific labels come first: ties go to the earliest rule,
		// and "buck-boost" text also matches the plain buck and boost
		// keywords.
		Rules: []Rule{
			{Label: "4switch_buck_boost", Keywords: []string{"4-switch", "4 switch", "four-switch", "four switch", "4-sw"}, Weight: 1.0},
			{Label: "buck_boost", Keywords: []string{"buck-boost", "buck boost", "inverting"}, Weight: 1.0},
			{Label: "buck", Keywords: []string{"buck", "step-down", "step down"}, Weight: 1.0},
			{Label: "boost", Keywords: []string{"boost", "step-up", "step up"}, Weight: 1.0},
			{Label: "flyback", Keywords: []string{"flyback", "fly-back"}, Weight: 1.0},
			{Label: "llc", Keywords: []string{"llc", "resonant"}, Weight: 1.0},
			{Label: "cllc", Keywords: []string{"cllc", "bidirectional resonant"}, Weight: 1.0},
			{Label: "dab", Keywords: []string{"dab", "dual active bridge"}, Weight: 1.0},
			{Label: "sepic", Keywords: []string{"sepic"}, Weight: 1.0},
			{Label: "cuk", Keywords: []string{"cuk", "ćuk"}, Weight: 1.0},
			{Label: "inverter", Keywords: []string{"inverter", "dc-ac", "dc/ac"}, Weight: 1.0},
			{Label: "charger", Keywords: []string{"charger", "charging", "battery charger"}, Weight: 1.0},
			{Label: "bms", Keywords: []string{"bms", "battery management"}, Weight: 1.0},
			{Label: "bidirectional", Keywords: []string{"bidirectional", "bi-directional", "bibuckboost", "bi buck boost"}, Weight: 1.0},
			{Label: "protection_circuit", Keywords: []string{"tvs", "tvs diode", "esd protection", "surge protection", "clamping circuit", "suppressor", "varistor"}, Weight: 1.0},
			{Label: "filter_circuit", Keywords: []string{"emi filter", "emc filter", "common mode choke", "differential mode", "pi filter", "lc filter", "ferrite bead"}, Weight: 1.0},
			{Label: "other", Keywords: []string{"forward", "push-pull", "full-bridge", "half-bridge"}, Weight: 0.8},
		},
	}
}
