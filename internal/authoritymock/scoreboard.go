// Package authoritymock is an in-process scoreboard authority used for
// local runs and tests.
package authoritymock

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pkt.systems/courtside/schema"
)

// CriticalThreshold is the remaining game time at and below which the
// clock is published with the critical style.
const CriticalThreshold = time.Minute

// Team is a catalog team.
type Team struct {
	ID             int
	Name           string
	ColorPrimary   string
	ColorSecondary string
}

// GameType is a catalog rules preset.
type GameType struct {
	ID            int
	Name          string
	Quarters      int
	QuarterLength time.Duration
}

// Config seeds a Scoreboard.
type Config struct {
	Teams     []Team
	GameTypes []GameType
	Clock     clockwork.Clock
}

// DefaultConfig returns a small two-team catalog.
func DefaultConfig() Config {
	return Config{
		Teams: []Team{
			{ID: 1, Name: "Home", ColorPrimary: "#1d4ed8", ColorSecondary: "#ffffff"},
			{ID: 2, Name: "Away", ColorPrimary: "#b91c1c", ColorSecondary: "#ffffff"},
		},
		GameTypes: []GameType{
			{ID: 1, Name: "Basketball 4x10", Quarters: 4, QuarterLength: 10 * time.Minute},
			{ID: 2, Name: "Basketball 4x12", Quarters: 4, QuarterLength: 12 * time.Minute},
		},
	}
}

// Scoreboard owns the authoritative match state.
type Scoreboard struct {
	mu    sync.Mutex
	clock clockwork.Clock

	teams     []Team
	gameTypes []GameType

	local    Team
	visit    Team
	gameType GameType

	pointsLocal, pointsVisit int
	foulsLocal, foulsVisit   int
	period                   int

	remaining time.Duration
	running   bool

	countdown        time.Duration
	countdownRunning bool

	operatorTheme    schema.ThemeName
	displayTheme     schema.ThemeName
	operatorTemplate schema.TemplateID
	displayTemplate  schema.TemplateID
}

// NewScoreboard returns a scoreboard configured with the first catalog
// entries.
func NewScoreboard(cfg Config) *Scoreboard {
	if len(cfg.Teams) == 0 || len(cfg.GameTypes) == 0 {
		def := DefaultConfig()
		if len(cfg.Teams) == 0 {
			cfg.Teams = def.Teams
		}
		if len(cfg.GameTypes) == 0 {
			cfg.GameTypes = def.GameTypes
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	b := &Scoreboard{
		clock:         cfg.Clock,
		teams:         cfg.Teams,
		gameTypes:     cfg.GameTypes,
		operatorTheme: schema.DefaultTheme,
		displayTheme:  schema.DefaultTheme,
	}
	visit := cfg.Teams[0]
	if len(cfg.Teams) > 1 {
		visit = cfg.Teams[1]
	}
	b.configure(cfg.Teams[0], visit, cfg.GameTypes[0])
	return b
}

func (b *Scoreboard) configure(local, visit Team, gameType GameType) {
	if gameType.QuarterLength <= 0 {
		gameType.QuarterLength = 10 * time.Minute
	}
	b.local = local
	b.visit = visit
	b.gameType = gameType
	b.pointsLocal, b.pointsVisit = 0, 0
	b.foulsLocal, b.foulsVisit = 0, 0
	b.period = 1
	b.remaining = gameType.QuarterLength
	b.running = false
	b.countdown = 0
	b.countdownRunning = false
}

// Apply executes one command. changed reports whether the state moved and
// a new snapshot should be published.
func (b *Scoreboard) Apply(req schema.CommandRequest) (res schema.CommandResult, changed bool) {
	res = schema.CommandResult{ID: req.ID, OK: true}
	if err := req.Validate(); err != nil {
		return schema.CommandResult{ID: req.ID, Error: err.Error()}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch req.Name {
	case schema.CommandCreateMatch:
		local, okL := b.team(req.Ints[0])
		visit, okV := b.team(req.Ints[1])
		gameType, okG := b.findGameType(req.Ints[2])
		if !okL || !okV || !okG {
			return schema.CommandResult{ID: req.ID, Error: "unknown catalog entry"}, false
		}
		b.configure(local, visit, gameType)
		return res, true
	case schema.CommandSetOperatorTheme, schema.CommandSetDisplayTheme:
		theme, ok := schema.NormalizeThemeName(req.Text)
		if !ok {
			return schema.CommandResult{ID: req.ID, Error: schema.ErrInvalidTheme.Error()}, false
		}
		if req.Name == schema.CommandSetOperatorTheme {
			b.operatorTheme = theme
		} else {
			b.displayTheme = theme
		}
		return res, true
	case schema.CommandStartPause:
		if b.remaining <= 0 {
			return res, false
		}
		b.running = !b.running
		return res, true
	case schema.CommandResetTime:
		b.remaining = b.gameType.QuarterLength
		b.running = false
		return res, true
	case schema.CommandNextPeriod:
		b.period++
		b.remaining = b.gameType.QuarterLength
		b.running = false
		b.foulsLocal, b.foulsVisit = 0, 0
		return res, true
	case schema.CommandStartPregame:
		if b.countdown <= 0 {
			return res, false
		}
		b.countdownRunning = true
		return res, true
	case schema.CommandSetPregameCountdown:
		d, err := schema.ParseClock(req.Text)
		if err != nil {
			return schema.CommandResult{ID: req.ID, Error: err.Error()}, false
		}
		b.countdown = d
		b.countdownRunning = false
		return res, true
	case schema.CommandScoreLocal:
		b.pointsLocal = max(0, b.pointsLocal+req.Ints[0])
		return res, true
	case schema.CommandScoreVisit:
		b.pointsVisit = max(0, b.pointsVisit+req.Ints[0])
		return res, true
	case schema.CommandFoulLocal:
		b.foulsLocal = max(0, b.foulsLocal+req.Ints[0])
		return res, true
	case schema.CommandFoulVisit:
		b.foulsVisit = max(0, b.foulsVisit+req.Ints[0])
		return res, true
	case schema.CommandSetOperatorTemplate, schema.CommandSetDisplayTemplate:
		id, ok := schema.NormalizeTemplateID(req.Text)
		if !ok {
			return schema.CommandResult{ID: req.ID, Error: "invalid template id"}, false
		}
		if req.Name == schema.CommandSetOperatorTemplate {
			b.operatorTemplate = id
		} else {
			b.displayTemplate = id
		}
		return res, true
	case schema.CommandRequestInitialState:
		return res, true
	}
	return schema.CommandResult{ID: req.ID, Error: "unsupported command"}, false
}

func (b *Scoreboard) team(id int) (Team, bool) {
	for _, t := range b.teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func (b *Scoreboard) findGameType(id int) (GameType, bool) {
	for _, g := range b.gameTypes {
		if g.ID == id {
			return g, true
		}
	}
	return GameType{}, false
}

// Tick advances running clocks by one second. It reports whether the
// published state changed.
func (b *Scoreboard) Tick() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	changed := false
	if b.countdownRunning {
		b.countdown -= time.Second
		if b.countdown <= 0 {
			b.countdown = 0
			b.countdownRunning = false
			if b.remaining > 0 {
				b.running = true
			}
		}
		changed = true
	}
	if b.running {
		b.remaining -= time.Second
		if b.remaining <= 0 {
			b.remaining = 0
			b.running = false
		}
		changed = true
	}
	return changed
}

// Run ticks the clocks once per second until ctx ends, calling onChange
// after every tick that moved the state.
func (b *Scoreboard) Run(ctx context.Context, onChange func()) {
	ticker := b.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if b.Tick() && onChange != nil {
				onChange()
			}
		}
	}
}

// Running reports whether the game clock is running.
func (b *Scoreboard) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Snapshot returns the current published state.
func (b *Scoreboard) Snapshot() schema.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	style := schema.TimeRegular
	if b.remaining <= CriticalThreshold {
		style = schema.TimeCritical
	}
	return schema.Snapshot{
		PointsLocal: b.pointsLocal,
		PointsVisit: b.pointsVisit,
		Time:        schema.FormatClock(b.remaining),
		TimeStyle:   style,
		Period:      b.period,
		Countdown:   schema.FormatClock(b.countdown),
		FoulsLocal:  b.foulsLocal,
		FoulsVisit:  b.foulsVisit,
		TeamLocal:   teamView(b.local),
		TeamVisit:   teamView(b.visit),
		GameType: &schema.GameTypeView{
			Name:           b.gameType.Name,
			Quarters:       json.Number(strconv.Itoa(b.gameType.Quarters)),
			TimePerQuarter: json.Number(strconv.Itoa(int(b.gameType.QuarterLength / time.Minute))),
		},
		Selected: schema.Selection{
			Local:    b.local.ID,
			Visit:    b.visit.ID,
			GameType: b.gameType.ID,
		},
		OperatorTheme:    b.operatorTheme,
		DisplayTheme:     b.displayTheme,
		OperatorTemplate: b.operatorTemplate,
		DisplayTemplate:  b.displayTemplate,
	}
}

func teamView(t Team) schema.TeamView {
	return schema.TeamView{
		Name:           t.Name,
		ColorPrimary:   t.ColorPrimary,
		ColorSecondary: t.ColorSecondary,
	}
}
