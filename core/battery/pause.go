package battery

import "time"

// Pause lets the cell rest for d at resolution res. The current is zero and
// only the temperature relaxes. The last micro-step is shortened so the
// operation ends exactly at Now+d.
func (c *Cell) Pause(d, res time.Duration, amb Ambient) {
	if d <= 0 || c.skip("pause", res) {
		return
	}
	start := c.Now
	n := stepCount(d, res)
	ambAt := amb.resolve(n)
	ocv := c.OCV()
	s := c.begin()
	for k := 0; k < n; k++ {
		off := time.Duration(k) * res
		dt := res
		if k == n-1 {
			dt = d - off
		}
		t := start.Add(off)
		s.rest(t, dt.Seconds(), ocv, ambAt(k, t))
	}
	s.finish(start.Add(d))
}

// PauseUntil rests until end. It does nothing if end is not after Now.
func (c *Cell) PauseUntil(end time.Time, res time.Duration, amb Ambient) {
	c.Pause(end.Sub(c.Now), res, amb)
}
