package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/rs/zerolog"
	"github.com/theckman/yacspin"
	yml "gopkg.in/yaml.v2"

	"github.com/pyobs/pyobs-sbig/device"
	"github.com/pyobs/pyobs-sbig/generichttp"
	"github.com/pyobs/pyobs-sbig/imgrec"
	"github.com/pyobs/pyobs-sbig/sbig"
	"github.com/pyobs/pyobs-sbig/sbigudrv"
	"github.com/pyobs/pyobs-sbig/sbigudrv/sim"
	"github.com/pyobs/pyobs-sbig/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "sbig-http.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix"`
}

type config struct {
	Addr        string   `yaml:"Addr"`
	Root        string   `yaml:"Root"`
	Sim         bool     `yaml:"Sim"`
	Recorder    recorder `yaml:"Recorder"`
	Setpoint    *float64 `yaml:"Setpoint"`
	FilterWheel string   `yaml:"FilterWheel"`
	Filters     []string `yaml:"Filters"`
	// ExposeTimeout is the window after integration ends in which the
	// driver must report the exposure complete, e.g. "30s"
	ExposeTimeout string `yaml:"ExposeTimeout"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:          ":8000",
		Root:          "/",
		Sim:           false,
		Recorder:      recorder{},
		FilterWheel:   "",
		ExposeTimeout: "30s"}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
	}
}

func root() {
	str := `sbig-http exposes control of SBIG cameras over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	sbig-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `sbig-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.
There is no need to do this unless you want to start from the prepopulated defaults when making
a config file.

Sim: true swaps the SBIG Universal Driver for a software simulation,
which needs no hardware and no vendor library.  Useful for client development.

FilterWheel accepts the vendor model names, e.g. CFW-L8 or FW8-8300.
Filters assigns names to the wheel positions in order; unnamed positions
are called by their number.

If the files and folders created do not have the permissions you want on linux,
your umask is likely to blame.  sbig-http makes them with permission 666, but your
umask is probably the default of 0022 which knocks them down to 444.  Set your
umask to 0000 before running sbig-http to solve this.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pversion() {
	fmt.Printf("sbig-http version %v\n", Version)
}

func newDriver(simulate bool) (sbigudrv.Driver, error) {
	if simulate {
		return sim.New(), nil
	}
	return sbigudrv.Open()
}

func run() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	cfg := config{}
	k.Unmarshal("", &cfg)

	drv, err := newDriver(cfg.Sim)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load SBIG driver")
	}

	dcfg := device.STF6303E()
	dcfg.Setpoint = cfg.Setpoint
	dcfg.FilterNames = cfg.Filters
	dcfg.FilterWheel, err = device.ParseCFWModel(cfg.FilterWheel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad filter wheel config")
	}

	cam := sbig.NewCamera(drv)
	if cfg.ExposeTimeout != "" {
		d, err := time.ParseDuration(cfg.ExposeTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("bad ExposeTimeout")
		}
		cam.SetTimeout(d)
	}
	dev := device.New(cam, dcfg, log)

	spinner, _ := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[14],
		Suffix:          " connecting to camera",
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	spinner.Start()
	// USB enumeration flakes right after the camera powers on, so
	// retry the link for a while before giving up
	pol := backoff.NewExponentialBackOff()
	pol.MaxElapsedTime = 2 * time.Minute
	err = backoff.Retry(dev.Connect, pol)
	spinner.Stop()
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to camera")
	}
	defer dev.Disconnect()

	r := &imgrec.Recorder{Root: cfg.Recorder.Root, Prefix: cfg.Recorder.Prefix, Enabled: cfg.Recorder.Root != ""}
	w := device.NewHTTPWrapper(dev, r)
	lock := locker.New()
	locker.Inject(&w, lock)

	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	rootR := chi.NewRouter()
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	rootR.Mount(hndlrS, mux)
	w.RT().Bind(mux)
	log.Info().Str("addr", cfg.Addr+cfg.Root).Msg("now listening for requests")
	log.Fatal().Err(http.ListenAndServe(cfg.Addr, rootR)).Msg("server stopped")
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		fmt.Fprintln(os.Stderr, "unknown command")
		os.Exit(1)
	}
}
