// Package api serves the engine's control surface over HTTP.
package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/gin-gonic/gin"
	"github.com/lumenaudio/lumen"
	"github.com/lumenaudio/lumen/engine"
	"github.com/lumenaudio/lumen/patterns"
	"github.com/lumenaudio/lumen/score"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Controller is the part of engine.Engine the server drives.
type Controller interface {
	Start()
	Stop()
	Pause()
	Resume()
	SetBPM(float64)
	SetScale(string)
	SetKey(string)
	SetNoteDensity(float64)
	SetDrums(bool)
	SetVolume(float64)
	SetDrumMasterVolume(float64)
	SetSynthEngine(lumen.EngineID)
	ChangeDrumPattern(string)
	UpdatePatternStep(lumen.Voice, int, bool)
	SaveCustomPattern(string)
	ResetPattern()
	UseCustomPatterns(lumen.Score)
	SwitchToGenerativeMode()
	SetChaosMode(bool)
	ChangePreset(lumen.Voice, string)
	SetAmbience(float64)
	State() engine.State
	CurrentPattern() lumen.Pattern
	Patterns() map[patterns.Category][]string
}

// MaxScoreBytes limits the size of an uploaded score.
const MaxScoreBytes = 1 << 20

type Server struct {
	ctrl Controller
}

type (
	valueReq struct {
		Value *float64 `json:"value" binding:"required"`
	}
	nameReq struct {
		Name string `json:"name" binding:"required"`
	}
	enabledReq struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	stepReq struct {
		On *bool `json:"on" binding:"required"`
	}
	listing struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
)

func New(ctrl Controller) *Server {
	return &Server{ctrl: ctrl}
}

// Handler builds the gin router.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/state", s.getState)
		v1.POST("/start", s.action(s.ctrl.Start))
		v1.POST("/stop", s.action(s.ctrl.Stop))
		v1.POST("/pause", s.action(s.ctrl.Pause))
		v1.POST("/resume", s.action(s.ctrl.Resume))

		v1.PUT("/bpm", s.value(s.ctrl.SetBPM))
		v1.PUT("/density", s.value(s.ctrl.SetNoteDensity))
		v1.PUT("/volume", s.value(s.ctrl.SetVolume))
		v1.PUT("/drum-volume", s.value(s.ctrl.SetDrumMasterVolume))
		v1.PUT("/ambience", s.value(s.ctrl.SetAmbience))
		v1.PUT("/drums", s.enabled(s.ctrl.SetDrums))
		v1.PUT("/chaos", s.enabled(s.ctrl.SetChaosMode))
		v1.PUT("/scale", s.setScale)
		v1.PUT("/key", s.setKey)
		v1.PUT("/engine", s.setEngine)
		v1.PUT("/presets/:voice", s.setPreset)

		v1.GET("/scales", s.listScales)
		v1.GET("/patterns", s.listPatterns)
		v1.GET("/pattern", s.getPattern)
		v1.PUT("/pattern", s.setPattern)
		v1.PUT("/pattern/steps/:voice/:step", s.setStep)
		v1.POST("/pattern/save", s.savePattern)
		v1.POST("/pattern/reset", s.action(s.ctrl.ResetPattern))

		v1.POST("/authored", s.useAuthored)
		v1.POST("/generative", s.action(s.ctrl.SwitchToGenerativeMode))
	}
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "lumen"})
}

// fail writes err with a status code derived from its tag.
func fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch ftag.Get(err) {
	case ftag.NotFound:
		code = http.StatusNotFound
	case ftag.InvalidArgument:
		code = http.StatusBadRequest
	case lumen.NotReady:
		code = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(code, gin.H{"error": issue(err)})
}

// issue prefers the user-facing description of err.
func issue(err error) string {
	if msg := fmsg.GetIssue(err); msg != "" {
		return msg
	}
	return err.Error()
}

func notFound(what, name string) error {
	return fault.New("unknown "+what, ftag.With(ftag.NotFound), fmsg.WithDesc(name, "No such "+what+": "+name))
}

// accepted answers a posted change. The player applies it on its next
// pulse, so the returned state may not include it yet.
func (s *Server) accepted(c *gin.Context) {
	c.JSON(http.StatusAccepted, s.ctrl.State())
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.State())
}

func (s *Server) action(f func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		f()
		s.accepted(c)
	}
}

func (s *Server) value(f func(float64)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req valueReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f(*req.Value)
		s.accepted(c)
	}
}

func (s *Server) enabled(f func(bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enabledReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f(*req.Enabled)
		s.accepted(c)
	}
}

// name binds a name request and checks it with parse before calling set.
func (s *Server) name(c *gin.Context, parse func(string) error, set func(string)) {
	var req nameReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := parse(req.Name); err != nil {
		fail(c, err)
		return
	}
	set(req.Name)
	s.accepted(c)
}

func (s *Server) setScale(c *gin.Context) {
	s.name(c, func(n string) error {
		_, err := lumen.LookupScale(n)
		return err
	}, s.ctrl.SetScale)
}

func (s *Server) setKey(c *gin.Context) {
	s.name(c, func(n string) error {
		_, err := lumen.ParsePitchClass(n)
		return err
	}, s.ctrl.SetKey)
}

func (s *Server) setEngine(c *gin.Context) {
	var id lumen.EngineID
	s.name(c, func(n string) (err error) {
		id, err = lumen.ParseEngine(n)
		return err
	}, func(string) { s.ctrl.SetSynthEngine(id) })
}

func (s *Server) setPreset(c *gin.Context) {
	v, err := lumen.ParseVoice(c.Param("voice"))
	if err != nil {
		fail(c, err)
		return
	}
	s.name(c, func(n string) error {
		if !lumen.HasPreset(v, n) {
			return notFound("preset", n)
		}
		return nil
	}, func(n string) { s.ctrl.ChangePreset(v, n) })
}

func (s *Server) setPattern(c *gin.Context) {
	s.name(c, func(n string) error {
		for _, keys := range s.ctrl.Patterns() {
			if slices.Contains(keys, n) {
				return nil
			}
		}
		return notFound("pattern", n)
	}, s.ctrl.ChangeDrumPattern)
}

func (s *Server) setStep(c *gin.Context) {
	v, err := lumen.ParseVoice(c.Param("voice"))
	if err != nil {
		fail(c, err)
		return
	}
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || !v.IsDrum() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "steps are addressed as /steps/<drum voice>/<index>"})
		return
	}
	if p := s.ctrl.CurrentPattern(); step < 0 || step >= p.Length {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "step index out of range"})
		return
	}
	var req stepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.ctrl.UpdatePatternStep(v, step, *req.On)
	s.accepted(c)
}

func (s *Server) savePattern(c *gin.Context) {
	s.name(c, func(string) error { return nil }, s.ctrl.SaveCustomPattern)
}

func (s *Server) getPattern(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.CurrentPattern())
}

func (s *Server) listScales(c *gin.Context) {
	caser := cases.Title(language.English)
	var ret []listing
	for _, n := range lumen.ScaleNames() {
		ret = append(ret, listing{Key: n, Label: label(caser, n)})
	}
	c.JSON(http.StatusOK, gin.H{"scales": ret})
}

func (s *Server) listPatterns(c *gin.Context) {
	caser := cases.Title(language.English)
	ret := map[string][]listing{}
	for cat, keys := range s.ctrl.Patterns() {
		l := []listing{}
		for _, k := range keys {
			l = append(l, listing{Key: k, Label: label(caser, k)})
		}
		ret[cat.String()] = l
	}
	c.JSON(http.StatusOK, gin.H{"patterns": ret})
}

// label turns "harmonicMinor" or "four-floor" into "Harmonic Minor" and
// "Four Floor". Casers keep state, so each request brings its own.
func label(caser cases.Caser, key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '-' || r == '_':
			b.WriteRune(' ')
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return caser.String(b.String())
}

// useAuthored switches to authored mode with the score in the request body:
// a Standard MIDI File when the content type says so, YAML otherwise.
func (s *Server) useAuthored(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxScoreBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "score larger than " + strconv.Itoa(MaxScoreBytes) + " bytes"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var sc lumen.Score
	switch c.ContentType() {
	case "audio/midi", "audio/x-midi", "application/x-midi":
		var bpm float64
		sc, bpm, err = score.ReadMIDI(bytes.NewReader(data))
		if err == nil && bpm > 0 && c.Query("tempo") == "file" {
			s.ctrl.SetBPM(bpm)
		}
	default:
		sc, err = score.ReadYAML(data)
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": issue(err)})
		return
	}
	s.ctrl.UseCustomPatterns(sc)
	s.accepted(c)
}
