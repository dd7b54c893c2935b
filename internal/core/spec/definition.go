package spec

// Definition is the raw content of a policy file before validation.
// Pointer fields distinguish "not set" from the zero value so that a base
// policy can supply defaults for them.
type Definition struct {
	// Policy is the NetBackup policy name.
	Policy string `mapstructure:"policy"`
	// Client is the NetBackup client name.
	Client string `mapstructure:"client"`
	// Enabled gates scheduled runs. Defaults to true.
	Enabled *bool `mapstructure:"enabled"`
	// Frequency is "weekly" or "monthly".
	Frequency string `mapstructure:"frequency"`
	// Weekday is the day of the week full backups run on.
	Weekday string `mapstructure:"weekday"`
	// SynthsBeforeReal is the number of synthetic fulls between real fulls.
	SynthsBeforeReal *int `mapstructure:"synths_before_real"`
	// NumSynthsBeforeRealFull is the legacy name of SynthsBeforeReal.
	NumSynthsBeforeRealFull *int `mapstructure:"num_synths_before_real_full"`
	// RealSchedule is the NetBackup schedule used for real fulls.
	RealSchedule string `mapstructure:"real_schedule"`
	// SynthSchedule is the NetBackup schedule used for synthetic fulls.
	SynthSchedule string `mapstructure:"synth_schedule"`
}
