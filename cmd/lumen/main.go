package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/api"
	"github.com/lumenaudio/lumen/cmd"
	"github.com/lumenaudio/lumen/config"
	"github.com/lumenaudio/lumen/engine"
	"github.com/lumenaudio/lumen/gomidi"
	"github.com/lumenaudio/lumen/oto"
	"github.com/lumenaudio/lumen/patterns"
	"github.com/lumenaudio/lumen/score"
	"github.com/lumenaudio/lumen/version"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultStatusFormat = `{{if .Playing}}{{if .Paused}}paused{{else}}playing{{end}}{{else}}stopped{{end}} ({{.Mode}}) {{printf "%.1f" .BPM}} bpm{{if ne .BPM .TargetBPM}} -> {{printf "%.1f" .TargetBPM}}{{end}}
{{.Key}} {{.Scale}}, density {{.Density}}, engine {{.Engine}}
pattern {{.Pattern}}{{if .PatternModified}}*{{end}}, drums {{if .Drums}}on{{else}}off{{end}}, chaos {{if .Chaos}}on{{else}}off{{end}}
{{- with .LastAlert}}
alert: {{.}}{{end}}
`

var (
	configPath string
	scorePath  string
	noAudio    bool
	statusAddr string
	statusFmt  string
	overrides  config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Live generative and pattern-sequenced music engine",
	Long: `lumen plays four melodic voices and a drum step sequencer from one
clock. Tempo, key, scale, drum pattern and synthesis engine can all be changed
while it plays, locally or over the HTTP control API.

Examples:
  lumen play --bpm 92 --scale dorian --key D
  lumen play --score tune.mid --engine midi
  lumen serve --listen :7878
  lumen status --format '{{.BPM}}'`,
	Version:       version.VersionOrHash,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play until interrupted",
	RunE: func(c *cobra.Command, args []string) error {
		return run(c, false)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Play and serve the control API",
	RunE: func(c *cobra.Command, args []string) error {
		return run(c, true)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of a running server",
	RunE:  runStatus,
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the drum patterns",
	RunE:  runPatterns,
}

var scalesCmd = &cobra.Command{
	Use:   "scales",
	Short: "List the scales",
	Run: func(c *cobra.Command, args []string) {
		caser := cases.Title(language.English)
		for _, n := range lumen.ScaleNames() {
			fmt.Fprintf(c.OutOrStdout(), "%-16s %s\n", n, caser.String(n))
		}
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Run: func(c *cobra.Command, args []string) {
		if !cmd.MIDIAvailable {
			fmt.Fprintln(c.ErrOrStderr(), "MIDI is not available in this build")
			return
		}
		for _, p := range gomidi.Ports() {
			fmt.Fprintln(c.OutOrStdout(), p)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(c *cobra.Command, args []string) {
		fmt.Fprintln(c.OutOrStdout(), version.VersionOrHash)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default <user config dir>/lumen/config.yml)")

	for _, c := range []*cobra.Command{playCmd, serveCmd} {
		f := c.Flags()
		f.Float64Var(&overrides.BPM, "bpm", 0, "Tempo in beats per minute (40-240)")
		f.StringVar(&overrides.Scale, "scale", "", "Scale name, see 'lumen scales'")
		f.StringVar(&overrides.Key, "key", "", "Key (root pitch class), e.g. C, F#, Bb")
		f.Float64Var(&overrides.Density, "density", 0, "Note density 0-100")
		f.StringVar(&overrides.Pattern, "pattern", "", "Drum pattern, see 'lumen patterns'")
		f.StringVar(&overrides.Engine, "engine", "", "Synthesis engine: synth, sampler or midi")
		f.BoolVar(&overrides.Chaos, "chaos", false, "Let the chaos daemon perturb the session")
		f.BoolVar(&overrides.Drums, "drums", true, "Play the drum sequencer")
		f.Uint64Var(&overrides.Seed, "seed", 0, "Random seed (0 picks one)")
		f.StringVar(&overrides.MIDIPort, "midi-port", "", "MIDI output port name (substring match)")
		f.StringVar(&overrides.SampleDir, "samples", "", "Sample bank directory")
		f.StringVar(&scorePath, "score", "", "Play an authored score (.yml or .mid) instead of generating")
		f.BoolVar(&noAudio, "no-audio", false, "Do not open the audio device")
	}
	serveCmd.Flags().StringVar(&overrides.Listen, "listen", "", "Address of the control API")

	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Server address (default from config)")
	statusCmd.Flags().StringVarP(&statusFmt, "format", "f", defaultStatusFormat, "Go template for the output; sprig functions are available")

	rootCmd.AddCommand(playCmd, serveCmd, statusCmd, patternsCmd, scalesCmd, portsCmd, versionCmd)
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadUser()
}

// applyOverrides copies the flags the user set into cfg.
func applyOverrides(c *cobra.Command, cfg *config.Config) {
	f := c.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("bpm", func() { cfg.BPM = overrides.BPM })
	set("scale", func() { cfg.Scale = overrides.Scale })
	set("key", func() { cfg.Key = overrides.Key })
	set("density", func() { cfg.Density = overrides.Density })
	set("pattern", func() { cfg.Pattern = overrides.Pattern })
	set("engine", func() { cfg.Engine = overrides.Engine })
	set("chaos", func() { cfg.Chaos = overrides.Chaos })
	set("drums", func() { cfg.Drums = overrides.Drums })
	set("seed", func() { cfg.Seed = overrides.Seed })
	set("midi-port", func() { cfg.MIDIPort = overrides.MIDIPort })
	set("samples", func() { cfg.SampleDir = overrides.SampleDir })
	set("listen", func() { cfg.Listen = overrides.Listen })
}

func run(c *cobra.Command, serve bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.New(c.ErrOrStderr(), "", log.LstdFlags)

	session, err := cmd.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if scorePath != "" {
		s, err := score.Load(scorePath)
		if err != nil {
			return err
		}
		session.Engine.UseCustomPatterns(s)
	}

	if !noAudio {
		audio, err := oto.NewContext(int(session.Mixer.SampleRate()))
		if err != nil {
			return err
		}
		defer audio.Close()
		player, err := audio.Play(session.Mixer, session.Gain)
		if err != nil {
			return err
		}
		defer player.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serve {
		srv := &http.Server{Addr: cfg.Listen, Handler: api.New(session.Engine).Handler()}
		go func() {
			logger.Printf("control API listening on %v", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("control API: %v", err)
				stop()
			}
		}()
		defer func() {
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdown)
		}()
	}

	session.Engine.Start()
	session.Engine.Run(ctx)
	return nil
}

func runStatus(c *cobra.Command, args []string) error {
	addr := statusAddr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.Listen
	}
	if !strings.Contains(addr, "://") {
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		addr = "http://" + addr
	}
	tmpl, err := template.New("status").Funcs(sprig.TxtFuncMap()).Parse(statusFmt)
	if err != nil {
		return fmt.Errorf("invalid --format: %w", err)
	}
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/api/v1/state")
	if err != nil {
		return fmt.Errorf("could not reach lumen: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lumen answered %v", resp.Status)
	}
	var state engine.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("could not decode state: %w", err)
	}
	return tmpl.Execute(c.OutOrStdout(), state)
}

func runPatterns(c *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.PatternDir
	if dir == "" {
		if dir, err = patterns.DefaultDir(); err != nil {
			return err
		}
	}
	store, err := patterns.NewStore(patterns.FileStore{Dir: dir})
	if err != nil {
		return err
	}
	if cfg.LibraryDir != "" {
		if _, err := store.Import(cfg.LibraryDir); err != nil {
			fmt.Fprintf(c.ErrOrStderr(), "%v: %v\n", filepath.Base(cfg.LibraryDir), err)
		}
	}
	caser := cases.Title(language.English)
	for _, cat := range []patterns.Category{patterns.Builtin, patterns.Imported, patterns.Custom} {
		keys := store.Keys(cat)
		if len(keys) == 0 {
			continue
		}
		fmt.Fprintln(c.OutOrStdout(), caser.String(cat.String()))
		for _, k := range keys {
			p, _ := store.ByKey(k)
			fmt.Fprintf(c.OutOrStdout(), "  %-16s %2d steps\n", k, p.Length)
		}
	}
	return nil
}
