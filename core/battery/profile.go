package battery

import (
	"math"
	"time"
)

// Profile is a power time series in W at a fixed resolution. Positive
// values charge the cell.
type Profile struct {
	Name       string        `json:"name" yaml:"name"`
	Resolution time.Duration `json:"resolution" yaml:"resolution"`
	Power      []float64     `json:"power" yaml:"power"`
}

// Duration returns the playback length of the profile.
func (p Profile) Duration() time.Duration {
	return time.Duration(len(p.Power)) * p.Resolution
}

// idle reports whether replaying p can never move the cell.
func (p Profile) idle() bool {
	for _, v := range p.Power {
		if v != 0 {
			return false
		}
	}
	return true
}

// PowerProfile replays pr once. Each value is resolved with
// CurrentFromPower.
func (c *Cell) PowerProfile(pr Profile, amb Ambient) {
	c.playback("power profile", pr, amb, math.Inf(-1))
}

// PowerProfileSoCLimited replays pr once but idles instead of discharging
// while the SoC is below socMin.
func (c *Cell) PowerProfileSoCLimited(pr Profile, amb Ambient, socMin float64) {
	c.playback("power profile", pr, amb, socMin)
}

func (c *Cell) playback(op string, pr Profile, amb Ambient, socMin float64) {
	if c.skip(op, pr.Resolution) {
		return
	}
	n := len(pr.Power)
	if n == 0 {
		c.log.Debugf("%s skipped: empty profile", op)
		return
	}
	start := c.Now
	ambAt := amb.resolve(n)
	dt := pr.Resolution.Seconds()
	s := c.begin()
	for k, pSet := range pr.Power {
		t := start.Add(time.Duration(k) * pr.Resolution)
		ocv := c.OCV()
		i := c.Params.CurrentFromPower(ocv, s.rCell, pSet)
		if pSet < 0 && c.SoC < socMin {
			i = 0
		}
		s.step(t, dt, ocv, i, ambAt(k, t))
	}
	s.finish(start.Add(pr.Duration()))
}

// RepeatRequest bounds PowerProfileRepeat. Zero values leave a bound unset.
type RepeatRequest struct {
	Profile Profile
	Ambient Ambient
	VMax    float64
	VMin    float64
	NMax    int
}

// minReplayShift is the SoC change below which a replay is treated as
// making no progress towards a voltage bound.
const minReplayShift = 1e-9

// PowerProfileRepeat replays the profile until the OCV leaves
// (VMin, VMax), NMax replays are done or the cell dies. It returns the
// number of replays.
//
// Requests that could loop forever return 0 immediately: no bound at all,
// a bound outside the cell's voltage window, or an idle profile with only
// voltage bounds. A replay that leaves the SoC unchanged also ends the
// loop.
func (c *Cell) PowerProfileRepeat(r RepeatRequest) int {
	p := c.Params
	switch {
	case r.VMax == 0 && r.VMin == 0 && r.NMax <= 0:
		c.log.Debugf("profile repeat rejected: no stop condition")
		return 0
	case r.VMin != 0 && r.VMin < p.VMin, r.VMax != 0 && r.VMax > p.VMax:
		c.log.Debugf("profile repeat rejected: bounds [%.3f, %.3f] outside cell window", r.VMin, r.VMax)
		return 0
	case r.NMax <= 0 && (len(r.Profile.Power) == 0 || r.Profile.idle() || r.Profile.Resolution <= 0):
		c.log.Debugf("profile repeat rejected: profile %q cannot reach a voltage bound", r.Profile.Name)
		return 0
	}
	n := 0
	for {
		ocv := c.OCV()
		if r.VMin != 0 && ocv <= r.VMin {
			break
		}
		if r.VMax != 0 && ocv >= r.VMax {
			break
		}
		if r.NMax > 0 && n >= r.NMax {
			break
		}
		if c.Dead() {
			break
		}
		before := c.SoC
		c.PowerProfile(r.Profile, r.Ambient)
		n++
		if r.NMax <= 0 && math.Abs(c.SoC-before) < minReplayShift {
			c.log.Debugf("profile repeat stopped: replay %d left SoC at %.6f", n, c.SoC)
			break
		}
	}
	return n
}
