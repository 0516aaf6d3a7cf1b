package trajectory

// state is [x, y, z, vx, vy, vz] in the fire frame.
type state [6]float64

type derivFunc func(s state) state

func rk4Step(s state, dt float64, f derivFunc) state {
	k1 := f(s)
	k2 := f(s.advance(k1, dt/2))
	k3 := f(s.advance(k2, dt/2))
	k4 := f(s.advance(k3, dt))
	var out state
	for i := range s {
		out[i] = s[i] + dt/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

func (s state) advance(k state, h float64) state {
	var out state
	for i := range s {
		out[i] = s[i] + h*k[i]
	}
	return out
}
