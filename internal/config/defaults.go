package config

// DefaultConfig matches the classic game: two random bots on an 8x8 Othello
// board, 250 games per run.
func DefaultConfig() Config {
	return Config{
		Board: BoardConfig{
			Rows:    8,
			Cols:    8,
			Players: 2,
			Variant: "default",
		},
		Arena: ArenaConfig{
			Games:      250,
			Strategies: []string{"random", "random"},
			Seed:       1,
			Depth:      4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
