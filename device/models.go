package device

// STF6303E is the build constants for the SBIG STF-6303E.
func STF6303E() Config {
	return Config{
		Model:      "SBIG STF-6303E",
		Instrument: "SBIG STF-6303E",
		Width:      3072,
		Height:     2048,
		PixelSize:  9.0,
		Gain:       1.47,
	}
}
