package query

// Domain synonym dictionary for keyword extraction and query expansion.
//
// The dictionary maps customer vocabulary to the terms the corpus
// actually uses. Every key found as a substring of the query becomes an
// extracted keyword; its synonyms drive expanded query variants. The
// table is finite and static: no model is involved, so analysis stays
// pure and deterministic.
//
// Design principles:
//  1. Map user vocabulary -> corpus vocabulary (not vice versa)
//  2. Keep synonym lists short; expansion fan-out is capped downstream
//  3. Multi-word keys are allowed and matched as substrings

// Synonyms maps domain terms to their synonym lists.
var Synonyms = map[string][]string{
	// Powertrain
	"engine":       {"motor", "powertrain"},
	"battery":      {"cell", "accumulator", "12v battery"},
	"transmission": {"gearbox", "cvt", "drivetrain"},
	"starter":      {"starter motor", "ignition motor"},
	"alternator":   {"generator", "charging unit"},

	// Consumables
	"oil":     {"engine oil", "lubricant", "motor oil"},
	"coolant": {"antifreeze", "radiator fluid"},
	"tire":    {"tyre", "wheel"},
	"wiper":   {"wiper blade", "windshield wiper"},

	// Brakes and suspension
	"brake":      {"brake pad", "braking"},
	"suspension": {"shock absorber", "strut", "damper"},

	// Electrical
	"headlight":  {"headlamp", "front light"},
	"fuse":       {"fuse box", "circuit"},
	"sensor":     {"detector", "sender unit"},
	"ecu":        {"computer", "control unit"},

	// Symptoms
	"noise":     {"sound", "rattle", "squeak"},
	"vibration": {"shaking", "judder"},
	"leak":      {"leakage", "drip"},
	"charging":  {"recharge", "charge"},
	"overheat":  {"overheating", "running hot"},
	"stall":     {"stalling", "cut out"},

	// Service vocabulary
	"inspection":  {"checkup", "service check"},
	"maintenance": {"servicing", "upkeep"},
	"warranty":    {"guarantee", "coverage"},
	"recall":      {"safety recall", "service campaign"},
}

// jargonToPlain maps technical jargon to plain-language equivalents.
// Used by Simplify for display only; retrieval always sees the
// original vocabulary.
var jargonToPlain = map[string]string{
	"ecu":          "engine computer",
	"cvt":          "automatic transmission",
	"oem":          "manufacturer original",
	"alternator":   "battery charging unit",
	"drivetrain":   "power delivery system",
	"strut":        "suspension support",
	"sender unit":  "measurement sensor",
	"judder":       "shaking",
	"aftermarket":  "non-original",
	"torque":       "turning force",
	"viscosity":    "oil thickness",
	"tread":        "tire surface",
}
