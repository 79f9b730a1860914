// Package wire translates request descriptions into wire payloads.
//
// Request descriptions declare their fields through Request.WireFields, so
// every payload shape is fixed at compile time. Field names use snake_case and
// are emitted in lowerCamel form; a field may pin its wire name explicitly
// (for example "_type" becomes "type" and "from_time" becomes "from").
package wire
