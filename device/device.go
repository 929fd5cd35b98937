/*
Package device adapts an sbig.Camera to the camera-device contract of an
observatory control system: connect/disconnect, windowing, binning,
exposure time, cooling, filter selection, and a blocking Expose that
returns a frame with FITS-style metadata cards.

Instead of a class hierarchy there is one Camera assembled by composition:
the control adapter, a Config carrying model-fixed constants, and an
optional filter wheel capability activated by the config.
*/
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/rs/zerolog"

	"github.com/pyobs/pyobs-sbig/sbig"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
)

// Status is the camera's place in the exposure sequence.
type Status string

const (
	// StatusIdle means no exposure is in flight
	StatusIdle Status = "idle"

	// StatusExposing means the sensor is integrating
	StatusExposing Status = "exposing"

	// StatusReadingOut means the sensor is being drained
	StatusReadingOut Status = "reading-out"
)

// Config carries the model-fixed constants for one camera build.
type Config struct {
	// Model is the camera model string, e.g. "SBIG STF-6303E"
	Model string `yaml:"Model"`

	// Instrument is the value of the INSTRUME header card
	Instrument string `yaml:"Instrument"`

	// Width and Height are the expected unbinned sensor geometry; a
	// mismatch against the hardware is logged at connect but not fatal
	Width  int `yaml:"Width"`
	Height int `yaml:"Height"`

	// PixelSize is the pixel pitch in microns
	PixelSize float64 `yaml:"PixelSize"`

	// Gain is the system gain in electrons per ADU
	Gain float64 `yaml:"Gain"`

	// FilterWheel is the attached wheel model, CFWUnknown for none
	FilterWheel sbigudrv.CFWModel `yaml:"-"`

	// FilterNames assigns names to wheel positions 1..n; missing
	// positions default to their number
	FilterNames []string `yaml:"FilterNames"`

	// Setpoint, when non-nil, enables cooling to this temperature at
	// connect
	Setpoint *float64 `yaml:"Setpoint"`
}

// Frame is one readout plus its header metadata.
type Frame struct {
	// Image holds the pixels and the scalar readout metadata
	Image *sbig.Image

	// Cards are the FITS header cards describing the frame
	Cards []fitsio.Card
}

// Camera is the framework-facing device.
type Camera struct {
	cam     *sbig.Camera
	cfg     Config
	log     zerolog.Logger
	filters map[sbigudrv.CFWPosition]string

	statusMu sync.Mutex
	status   Status
}

// New assembles a device from a control adapter and a config.
func New(cam *sbig.Camera, cfg Config, log zerolog.Logger) *Camera {
	return &Camera{
		cam:     cam,
		cfg:     cfg,
		log:     log,
		filters: filterTable(cfg),
		status:  StatusIdle,
	}
}

// Connect initializes the filter wheel when one is configured,
// establishes the hardware link, and applies the cooling setpoint.
func (c *Camera) Connect() error {
	if c.cfg.FilterWheel != sbigudrv.CFWUnknown {
		c.log.Info().Msg("initialising filter wheel")
		if err := c.cam.SetFilterWheel(c.cfg.FilterWheel); err != nil {
			return fmt.Errorf("could not set filter wheel: %w", err)
		}
	}
	c.log.Info().Msg("opening SBIG driver")
	if err := c.cam.EstablishLink(); err != nil {
		return fmt.Errorf("could not establish link: %w", err)
	}
	if full, err := c.cam.FullFrame(); err == nil {
		if c.cfg.Width != 0 && (full.Width != c.cfg.Width || full.Height != c.cfg.Height) {
			c.log.Warn().
				Int("want_width", c.cfg.Width).Int("want_height", c.cfg.Height).
				Int("got_width", full.Width).Int("got_height", full.Height).
				Msg("sensor geometry differs from configuration")
		}
	}
	if c.cfg.Setpoint != nil {
		return c.SetCooling(true, *c.cfg.Setpoint)
	}
	return nil
}

// Disconnect releases the hardware link.
func (c *Camera) Disconnect() error {
	return c.cam.Close()
}

// Status reports where the camera is in the exposure sequence.
func (c *Camera) Status() Status {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

func (c *Camera) setStatus(s Status) {
	c.statusMu.Lock()
	c.status = s
	c.statusMu.Unlock()
}

// GetFullFrame returns the unbinned sensor geometry.
func (c *Camera) GetFullFrame() (sbig.Window, error) {
	return c.cam.FullFrame()
}

// GetWindow returns the configured subframe.
func (c *Camera) GetWindow() sbig.Window {
	return c.cam.Window()
}

// SetWindow stores the subframe; it is pushed to the hardware at the next
// exposure.
func (c *Camera) SetWindow(w sbig.Window) {
	c.log.Info().
		Int("width", w.Width).Int("height", w.Height).
		Int("left", w.Left).Int("top", w.Top).
		Msg("setting window")
	c.cam.SetWindow(w)
}

// GetBinning returns the configured binning.
func (c *Camera) GetBinning() sbig.Binning {
	return c.cam.Binning()
}

// SetBinning validates and stores the binning.
func (c *Camera) SetBinning(b sbig.Binning) error {
	if err := c.cam.SetBinning(b); err != nil {
		return err
	}
	c.log.Info().Int("x", b.X).Int("y", b.Y).Msg("setting binning")
	return nil
}

// GetExposureTime returns the programmed integration time.
func (c *Camera) GetExposureTime() time.Duration {
	return c.cam.ExposureTime()
}

// SetExposureTime programs the integration time.
func (c *Camera) SetExposureTime(d time.Duration) {
	c.cam.SetExposureTime(d)
}

// SetCooling enables or disables cooling and assigns the setpoint.
func (c *Camera) SetCooling(enabled bool, setpoint float64) error {
	if enabled {
		c.log.Info().Float64("setpoint", setpoint).Msg("enabling cooling")
	} else {
		c.log.Info().Msg("disabling cooling")
	}
	if err := c.cam.SetCooling(enabled, setpoint); err != nil {
		return fmt.Errorf("could not set cooling: %w", err)
	}
	return nil
}

// GetCooling queries the cooling subsystem.
func (c *Camera) GetCooling() (sbig.CoolingStatus, error) {
	return c.cam.Cooling()
}

// Expose runs one full exposure sequence, idle -> exposing -> reading-out
// -> idle, and returns the frame with its header cards.  It blocks for
// the whole integration; cancel ctx to abort.
func (c *Camera) Expose(ctx context.Context, openShutter bool) (*Frame, error) {
	texp := c.cam.ExposureTime()
	shutter := "closed"
	if openShutter {
		shutter = "open"
	}
	c.log.Info().
		Float64("seconds", texp.Seconds()).
		Str("shutter", shutter).
		Msg("starting exposure")

	dateObs := time.Now().UTC()
	img := sbig.NewImage(0, 0)
	img.CanClose = false

	c.setStatus(StatusExposing)
	defer c.setStatus(StatusIdle)
	if err := c.cam.Expose(ctx, img, openShutter); err != nil {
		return nil, fmt.Errorf("could not take image: %w", err)
	}

	c.log.Info().Msg("exposure finished, reading out")
	c.setStatus(StatusReadingOut)
	if err := c.cam.Readout(img, openShutter); err != nil {
		return nil, fmt.Errorf("could not read out image: %w", err)
	}
	img.CanClose = true

	if c.cfg.FilterWheel != sbigudrv.CFWUnknown {
		if name, err := c.GetFilter(); err == nil {
			img.FilterName = name
		}
	}

	frame := &Frame{Image: img, Cards: c.headerCards(img, dateObs)}
	c.log.Info().Msg("readout finished")
	return frame, nil
}

// headerCards assembles the FITS header for a frame.  Metadata errors are
// plowed through; a frame with a thin header beats no frame.
func (c *Camera) headerCards(img *sbig.Image, dateObs time.Time) []fitsio.Card {
	imgType := "LIGHT"
	if img.Dark {
		imgType = "DARK"
	}
	cards := []fitsio.Card{
		{Name: "DATE-OBS", Value: dateObs.Format("2006-01-02T15:04:05.000"), Comment: "Date and time of start of exposure"},
		{Name: "EXPTIME", Value: img.ExposureTime.Seconds(), Comment: "Exposure time [s]"},
		{Name: "IMAGETYP", Value: imgType, Comment: "Type of exposure"},
		{Name: "INSTRUME", Value: c.cfg.Instrument, Comment: "Name of instrument"},
		{Name: "DETECTOR", Value: c.cfg.Model, Comment: "Name of detector"},
	}
	if cs, err := c.cam.Cooling(); err == nil {
		cards = append(cards,
			fitsio.Card{Name: "DET-TEMP", Value: cs.Temperature, Comment: "CCD temperature [C]"},
			fitsio.Card{Name: "DET-TSET", Value: cs.Setpoint, Comment: "Cooler setpoint [C]"},
		)
	}
	bin := img.Binning
	cards = append(cards,
		fitsio.Card{Name: "XBINNING", Value: bin.X, Comment: "Binning factor used on X axis"},
		fitsio.Card{Name: "YBINNING", Value: bin.Y, Comment: "Binning factor used on Y axis"},
		fitsio.Card{Name: "DET-BIN1", Value: bin.X, Comment: "Binning factor used on X axis"},
		fitsio.Card{Name: "DET-BIN2", Value: bin.Y, Comment: "Binning factor used on Y axis"},
		fitsio.Card{Name: "XORGSUBF", Value: img.Subframe.Left, Comment: "Subframe origin on X axis"},
		fitsio.Card{Name: "YORGSUBF", Value: img.Subframe.Top, Comment: "Subframe origin on Y axis"},
	)
	if c.cfg.PixelSize > 0 {
		cards = append(cards,
			fitsio.Card{Name: "XPIXSZ", Value: c.cfg.PixelSize * float64(bin.X), Comment: "Pixel size on X axis [um]"},
			fitsio.Card{Name: "YPIXSZ", Value: c.cfg.PixelSize * float64(bin.Y), Comment: "Pixel size on Y axis [um]"},
		)
	}
	if c.cfg.Gain > 0 {
		cards = append(cards, fitsio.Card{Name: "EGAIN", Value: c.cfg.Gain, Comment: "System gain [e-/ADU]"})
	}
	if img.FilterName != "" {
		cards = append(cards, fitsio.Card{Name: "FILTER", Value: img.FilterName, Comment: "Filter used for exposure"})
	}
	min, max, mean := pixelStats(img.Pix())
	cards = append(cards,
		fitsio.Card{Name: "DATAMIN", Value: min, Comment: "Minimum data value"},
		fitsio.Card{Name: "DATAMAX", Value: max, Comment: "Maximum data value"},
		fitsio.Card{Name: "DATAMEAN", Value: mean, Comment: "Mean data value"},
	)
	return cards
}

func pixelStats(pix []uint16) (min, max, mean float64) {
	if len(pix) == 0 {
		return 0, 0, 0
	}
	lo, hi := pix[0], pix[0]
	var sum float64
	for _, v := range pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += float64(v)
	}
	return float64(lo), float64(hi), sum / float64(len(pix))
}
