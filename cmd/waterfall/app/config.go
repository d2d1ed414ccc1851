package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

type Config struct {
	DBPath     string
	SessionID  int64
	OutputFile string
	FontFile   string
	Theme      ColorTheme
	SampleRate float64
	CellWidth  int
	CellHeight int
	Verbose    bool
}

func NewConfig() *Config {
	return &Config{
		Theme:      ThermalTheme,
		SampleRate: 1e6,
		CellWidth:  8,
		CellHeight: 4,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var theme string
	flag.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.OutputFile, "o", "waterfall.png", "Path to the output PNG file")
	flag.StringVar(&c.FontFile, "font", "", "Path to a TTF font for annotations (optional)")
	flag.StringVar(&theme, "theme", string(ThermalTheme), "Color theme. [thermal, grayscale]")
	flag.Float64Var(&c.SampleRate, "rate", c.SampleRate, "Sounding sample rate in Hz, used for the frequency scale")
	flag.IntVar(&c.CellWidth, "cw", c.CellWidth, "Pixels per frequency bin")
	flag.IntVar(&c.CellHeight, "ch", c.CellHeight, "Pixels per stored frame")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.SessionID <= 0:
		err = errors.New("session id is required")
	case c.CellWidth <= 0 || c.CellHeight <= 0:
		err = errors.New("cell dimensions must be positive")
	}

	switch ColorTheme(strings.ToLower(theme)) {
	case ThermalTheme, GrayscaleTheme:
		c.Theme = ColorTheme(strings.ToLower(theme))
	default:
		err = fmt.Errorf("invalid color theme: %s", theme)
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}
	return c, nil
}
