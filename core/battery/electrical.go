package battery

// CellStep advances the electrical and thermal model by dt seconds at the
// already resolved current i. It performs no clamping.
//
// The terminal voltage and power refer to the start of the step, SoC and
// temperature to its end.
func (p Parameters) CellStep(dt, soc, ocv, i, tempCell, tempAmbient, capRemaining, rCell float64) (socNext, vCell, pCell, tempNext float64) {
	dv := rCell * i
	vCell = ocv + dv
	pCell = vCell * i
	socNext = soc
	if capRemaining > 0 {
		socNext = soc + i*dt/(capRemaining*3600)
	}
	tempNext = p.ThermalStep(dt, tempCell, tempAmbient, dv*i)
	return socNext, vCell, pCell, tempNext
}

// ThermalStep is one forward Euler step of the RC thermal node. A zero
// pLoss gives the resting cell.
func (p Parameters) ThermalStep(dt, tempCell, tempAmbient, pLoss float64) float64 {
	return tempCell + ((tempAmbient+p.RTh*pLoss-tempCell)/(p.RTh*p.CTh))*dt
}
