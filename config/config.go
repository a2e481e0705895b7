// Package config defines the Conf struct used by the cmd package to bind cobra
// flags and viper configuration values into a single typed structure.
package config

// Conf holds the configuration values populated by viper from cobra flags,
// environment variables, or a config file.
//
// mapstructure tags are required wherever the lowercased Go field name does
// not match the cobra flag name that viper binds. Without them,
// viper.Unmarshal silently leaves those fields at their zero value.
type Conf struct {
	// FramesDir is the directory scanned for main/auth frame text files
	// (--framesdir).
	FramesDir string `mapstructure:"framesdir"`
	// ShardsDir is the directory scanned for shard (Key) frame text files
	// (--shardsdir). Empty means no shard material is ingested and recovery
	// proceeds on passphrase alone.
	ShardsDir string `mapstructure:"shardsdir"`
	// OutDir is the directory recovered files are extracted into
	// (--outdir).
	OutDir string `mapstructure:"outdir"`
	// Zip, when true, additionally bundles OutDir's contents into a single
	// archive at OutDir + ".zip" after a successful recover (--zip).
	Zip bool

	// Passphrase is deliberately never bound to a flag — a passphrase on the
	// command line ends up in shell history and process listings. The
	// "-" tag keeps viper.Unmarshal from filling this field; the recover
	// command reads the passphrase directly from the ETHERNITY_PASSPHRASE
	// environment variable (viper's automatic env binding in cmd/root.go) or,
	// when unset, prompts for it interactively.
	Passphrase string `mapstructure:"-"`

	// MaxScryptLogN caps the accepted scrypt work factor (--maxscryptlogn).
	// The default of 20 matches internal/agescrypt.MaxLogN; lowering it is
	// only useful to bound worst-case CPU time in testing or on constrained
	// hardware, never to widen what's accepted.
	MaxScryptLogN int `mapstructure:"maxscryptlogn"`

	// Quiet suppresses the recover command's non-essential log lines
	// (--quiet).
	Quiet bool
}
