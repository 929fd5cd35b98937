package device

import (
	"encoding/json"
	"go/types"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"github.com/pyobs/pyobs-sbig/generichttp"
	"github.com/pyobs/pyobs-sbig/imgrec"
	"github.com/pyobs/pyobs-sbig/sbig"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
	"github.com/pyobs/pyobs-sbig/server"
	"github.com/pyobs/pyobs-sbig/util"
)

// HTTPWrapper exposes a Camera over HTTP.
type HTTPWrapper struct {
	// Camera is the camera being exposed
	*Camera

	// Rec is an optional recorder that archives FITS downloads
	Rec *imgrec.Recorder

	routeTable generichttp.RouteTable
}

// NewHTTPWrapper returns a newly initialized wrapper with populated routes.
func NewHTTPWrapper(c *Camera, rec *imgrec.Recorder) HTTPWrapper {
	w := HTTPWrapper{Camera: c, Rec: rec}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/exposure-time"}:  w.GetExposureTime,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/exposure-time"}: w.SetExposureTime,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/binning"}:        w.GetBinning,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/binning"}:       w.SetBinning,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/window"}:         w.GetWindow,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/window"}:        w.SetWindow,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/full-frame"}:     w.GetFullFrame,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/cooling"}:        w.GetCooling,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/cooling"}:       w.SetCooling,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/temperature"}:    w.GetTemperature,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}:         w.GetStatus,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/image"}:          w.GetImage,
	}
	if c.cfg.FilterWheel != sbigudrv.CFWUnknown {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/filter"}] = w.GetFilter
		rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/filter"}] = w.SetFilter
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/filters"}] = w.GetFilters
	}
	w.routeTable = rt
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(&w)
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h *HTTPWrapper) RT() generichttp.RouteTable {
	if h.routeTable == nil {
		h.routeTable = generichttp.RouteTable{}
	}
	return h.routeTable
}

// GetExposureTime returns the programmed exposure time in seconds as
// json {"f64": value}
func (h *HTTPWrapper) GetExposureTime(w http.ResponseWriter, r *http.Request) {
	generichttp.GetFloat(func() (float64, error) {
		return h.Camera.GetExposureTime().Seconds(), nil
	})(w, r)
}

// SetExposureTime sets the exposure time from json {"f64": seconds}
func (h *HTTPWrapper) SetExposureTime(w http.ResponseWriter, r *http.Request) {
	generichttp.SetFloat(func(f float64) error {
		h.Camera.SetExposureTime(time.Duration(f * float64(time.Second)))
		return nil
	})(w, r)
}

// GetBinning returns the binning as json {"x": 1, "y": 1}
func (h *HTTPWrapper) GetBinning(w http.ResponseWriter, r *http.Request) {
	generichttp.GetJSON(func() (interface{}, error) {
		return h.Camera.GetBinning(), nil
	})(w, r)
}

// SetBinning sets the binning from json {"x": 1, "y": 1}
func (h *HTTPWrapper) SetBinning(w http.ResponseWriter, r *http.Request) {
	b := sbig.Binning{}
	err := json.NewDecoder(r.Body).Decode(&b)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Camera.SetBinning(b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetWindow returns the subframe as json
func (h *HTTPWrapper) GetWindow(w http.ResponseWriter, r *http.Request) {
	generichttp.GetJSON(func() (interface{}, error) {
		return h.Camera.GetWindow(), nil
	})(w, r)
}

// SetWindow sets the subframe from json
func (h *HTTPWrapper) SetWindow(w http.ResponseWriter, r *http.Request) {
	win := sbig.Window{}
	err := json.NewDecoder(r.Body).Decode(&win)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Camera.SetWindow(win)
	w.WriteHeader(http.StatusOK)
}

// GetFullFrame returns the unbinned sensor geometry as json
func (h *HTTPWrapper) GetFullFrame(w http.ResponseWriter, r *http.Request) {
	generichttp.GetJSON(func() (interface{}, error) {
		return h.Camera.GetFullFrame()
	})(w, r)
}

// coolingT mirrors sbig.CoolingStatus for POSTs
type coolingT struct {
	Enabled  bool    `json:"enabled"`
	Setpoint float64 `json:"setpoint"`
}

// GetCooling returns the cooling status as json
func (h *HTTPWrapper) GetCooling(w http.ResponseWriter, r *http.Request) {
	generichttp.GetJSON(func() (interface{}, error) {
		return h.Camera.GetCooling()
	})(w, r)
}

// SetCooling sets the cooler state from json {"enabled": true, "setpoint": -10}
func (h *HTTPWrapper) SetCooling(w http.ResponseWriter, r *http.Request) {
	c := coolingT{}
	err := json.NewDecoder(r.Body).Decode(&c)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Camera.SetCooling(c.Enabled, c.Setpoint); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetTemperature returns the detector temperature in Celsius as
// json {"f64": value}
func (h *HTTPWrapper) GetTemperature(w http.ResponseWriter, r *http.Request) {
	generichttp.GetFloat(func() (float64, error) {
		cs, err := h.Camera.GetCooling()
		return cs.Temperature, err
	})(w, r)
}

// GetStatus returns the camera status as json {"str": "idle"}
func (h *HTTPWrapper) GetStatus(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: string(h.Camera.Status())}
	hp.EncodeAndRespond(w, r)
}

// GetFilter returns the current filter name as json {"str": value}
func (h *HTTPWrapper) GetFilter(w http.ResponseWriter, r *http.Request) {
	generichttp.GetString(h.Camera.GetFilter)(w, r)
}

// SetFilter moves the wheel from json {"str": name}
func (h *HTTPWrapper) SetFilter(w http.ResponseWriter, r *http.Request) {
	generichttp.SetString(h.Camera.SetFilter)(w, r)
}

// GetFilters returns the filter names in wheel order
func (h *HTTPWrapper) GetFilters(w http.ResponseWriter, r *http.Request) {
	generichttp.GetJSON(func() (interface{}, error) {
		names, err := h.Camera.ListFilters()
		return names, err
	})(w, r)
}

// GetImage takes an exposure and returns it on a GET request.
//
// The image format may be specified in the fmt query parameter, fits, png,
// or jpg; default fits.
//
// The exposure time may be specified in the exposureTime query parameter
// in any time-looking format, such as "250ms" or "2s"; bare numbers are
// taken as seconds.  If absent, the programmed value is used.
//
// shutter=closed takes a dark frame.
//
// Closing the request aborts the exposure.
func (h *HTTPWrapper) GetImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	texp := q.Get("exposureTime")
	if texp != "" {
		if util.AllElementsNumbers(texp) {
			texp = texp + "s"
		}
		T, err := time.ParseDuration(texp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Camera.SetExposureTime(T)
	}
	openShutter := q.Get("shutter") != "closed"

	frame, err := h.Camera.Expose(r.Context(), openShutter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	img := frame.Image

	format := q.Get("fmt")
	if format == "" {
		format = "fits"
	}
	switch format {
	case "jpg", "png":
		pix := img.Pix()
		buf := make([]byte, len(pix))
		for idx := 0; idx < len(pix); idx++ {
			buf[idx] = byte(pix[idx] / 256) // scale 16 to 8 bits
		}
		im := &image.Gray{Pix: buf, Stride: img.Width(), Rect: image.Rect(0, 0, img.Width(), img.Height())}
		if format == "jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
			jpeg.Encode(w, im, nil)
		} else {
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			png.Encode(w, im)
		}
	case "fits":
		var w2 io.Writer = w
		if h.Rec != nil && h.Rec.Enabled && h.Rec.Root != "" {
			w2 = io.MultiWriter(w, h.Rec)
			defer h.Rec.Incr()
		}
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
		if err := WriteFits(w2, frame); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	default:
		http.Error(w, "unknown image format "+format, http.StatusBadRequest)
	}
}
